// Package indexstatus defines the closed set of page indexing statuses and the
// classifier that maps Search Console inspection results onto it.
package indexstatus

// Status is the indexing state of a single URL. The string values match the
// coverage states reported by Search Console so cached records stay readable.
type Status string

// Statuses reported by the URL Inspection API.
const (
	SubmittedAndIndexed                   Status = "Submitted and indexed"
	DuplicateWithoutUserSelectedCanonical Status = "Duplicate without user-selected canonical"
	CrawledCurrentlyNotIndexed            Status = "Crawled - currently not indexed"
	DiscoveredCurrentlyNotIndexed         Status = "Discovered - currently not indexed"
	PageWithRedirect                      Status = "Page with redirect"
	URLIsUnknownToGoogle                  Status = "URL is unknown to Google"
)

// Synthetic statuses for transport failures.
const (
	RateLimited Status = "RateLimited"
	Forbidden   Status = "Forbidden"
	Error       Status = "Error"
)

// All lists every status in report order.
var All = []Status{
	SubmittedAndIndexed,
	DuplicateWithoutUserSelectedCanonical,
	CrawledCurrentlyNotIndexed,
	DiscoveredCurrentlyNotIndexed,
	PageWithRedirect,
	URLIsUnknownToGoogle,
	RateLimited,
	Forbidden,
	Error,
}

// Deletable is the set of statuses for which a removal request is appropriate.
var Deletable = []Status{SubmittedAndIndexed}

// IsValid reports whether s belongs to the taxonomy.
func (s Status) IsValid() bool {
	switch s {
	case SubmittedAndIndexed,
		DuplicateWithoutUserSelectedCanonical,
		CrawledCurrentlyNotIndexed,
		DiscoveredCurrentlyNotIndexed,
		PageWithRedirect,
		URLIsUnknownToGoogle,
		RateLimited,
		Forbidden,
		Error:
		return true
	default:
		return false
	}
}

// IsDeletable reports whether s is in the Deletable set.
func (s Status) IsDeletable() bool {
	for _, d := range Deletable {
		if s == d {
			return true
		}
	}
	return false
}

// Emoji returns the marker used when printing per-status summaries.
func (s Status) Emoji() string {
	switch s {
	case SubmittedAndIndexed:
		return "✅"
	case DuplicateWithoutUserSelectedCanonical:
		return "😵"
	case CrawledCurrentlyNotIndexed, DiscoveredCurrentlyNotIndexed:
		return "👀"
	case PageWithRedirect:
		return "🔀"
	case URLIsUnknownToGoogle:
		return "❓"
	case RateLimited:
		return "🚦"
	default:
		return "❌"
	}
}

func (s Status) String() string {
	return string(s)
}
