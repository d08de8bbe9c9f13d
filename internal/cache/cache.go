// Package cache holds per-URL status records, the policy deciding when a cached
// record may be reused, and the interface implemented by the persistence backends.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

// DefaultTimeout is the age after which a non-deletable record is rechecked.
const DefaultTimeout = 14 * 24 * time.Hour

// Record is the last known status of one URL.
type Record struct {
	Status        indexstatus.Status `json:"status"`
	LastCheckedAt time.Time          `json:"lastCheckedAt"`
}

// Records maps URL to its Record.
type Records map[string]Record

// Clone returns a shallow copy of r; a nil map clones to an empty one.
func (r Records) Clone() Records {
	out := make(Records, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store loads and saves the full record map for one site.
type Store interface {
	// Load returns the records for site, or an empty map when none were saved.
	Load(ctx context.Context, site string) (Records, error)
	// Save replaces every record stored for site.
	Save(ctx context.Context, site string, records Records) error
	Close() error
}

// NoOpStore never persists anything.
type NoOpStore struct{}

// Load returns an empty map.
func (NoOpStore) Load(context.Context, string) (Records, error) { return Records{}, nil }

// Save discards the records.
func (NoOpStore) Save(context.Context, string, Records) error { return nil }

// Close does nothing.
func (NoOpStore) Close() error { return nil }

// SiteKey turns a Search Console site URL into a storage-safe key, e.g.
// "https://example.com/" becomes "https_example.com_".
func SiteKey(site string) string {
	key := strings.Replace(site, "http://", "http_", 1)
	key = strings.Replace(key, "https://", "https_", 1)
	return strings.Replace(key, "/", "_", 1)
}

// Encode serialises records in the on-disk JSON layout.
func Encode(records Records) ([]byte, error) {
	if records == nil {
		records = Records{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

// Decode parses the JSON layout produced by Encode. Records carrying a status
// outside the taxonomy are rejected.
func Decode(data []byte) (Records, error) {
	records := Records{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for url, rec := range records {
		if !rec.Status.IsValid() {
			return nil, fmt.Errorf("decode records: %q has unknown status %q", url, rec.Status)
		}
	}
	return records, nil
}
