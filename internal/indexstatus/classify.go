package indexstatus

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnmappedStatus is returned when the remote verdict has no place in the taxonomy.
var ErrUnmappedStatus = errors.New("unmapped index status")

// RawVerdict is the outcome of one URL inspection call. HTTPStatus is zero when
// the request never produced a response.
type RawVerdict struct {
	HTTPStatus    int
	Verdict       string
	CoverageState string
	Err           error
}

var coverageStates = map[string]Status{
	"submitted and indexed":                     SubmittedAndIndexed,
	"indexed, not submitted in sitemap":         SubmittedAndIndexed,
	"duplicate without user-selected canonical": DuplicateWithoutUserSelectedCanonical,
	"crawled - currently not indexed":           CrawledCurrentlyNotIndexed,
	"discovered - currently not indexed":        DiscoveredCurrentlyNotIndexed,
	"page with redirect":                        PageWithRedirect,
	"url is unknown to google":                  URLIsUnknownToGoogle,
}

// Classify maps a RawVerdict to a Status. Transport failures become RateLimited,
// Forbidden or Error; an unrecognised coverage state is an ErrUnmappedStatus.
func Classify(v RawVerdict) (Status, error) {
	switch {
	case v.HTTPStatus == http.StatusTooManyRequests:
		return RateLimited, nil
	case v.HTTPStatus == http.StatusForbidden:
		return Forbidden, nil
	case v.Err != nil:
		return Error, nil
	case v.HTTPStatus >= http.StatusMultipleChoices:
		return Error, nil
	}

	key := strings.ToLower(strings.TrimSpace(v.CoverageState))
	if status, ok := coverageStates[key]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: verdict=%q coverage_state=%q", ErrUnmappedStatus, v.Verdict, v.CoverageState)
}
