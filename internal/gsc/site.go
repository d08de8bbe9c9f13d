package gsc

import "strings"

// ConvertToSiteURL turns user input into a Search Console property identifier.
// URL-prefix properties end with a slash; anything else is a domain property.
func ConvertToSiteURL(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		if !strings.HasSuffix(input, "/") {
			return input + "/"
		}
		return input
	}
	return "sc-domain:" + input
}
