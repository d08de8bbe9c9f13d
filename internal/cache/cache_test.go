package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

func TestShouldRecheckDeletableAlwaysTrue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{0, time.Second, time.Hour, 13 * 24 * time.Hour, 30 * 24 * time.Hour} {
		assert.True(t, ShouldRecheck(indexstatus.SubmittedAndIndexed, now.Add(-age), now), "age %v", age)
	}
	// A record stamped in the future is still rechecked.
	assert.True(t, ShouldRecheck(indexstatus.SubmittedAndIndexed, now.Add(time.Hour), now))
}

func TestShouldRecheckFreshNonDeletableIsReused(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, s := range indexstatus.All {
		if s.IsDeletable() {
			continue
		}
		assert.False(t, ShouldRecheck(s, now.Add(-24*time.Hour), now), s)
		assert.False(t, ShouldRecheck(s, now.Add(-DefaultTimeout), now), "boundary %s", s)
		assert.True(t, ShouldRecheck(s, now.Add(-DefaultTimeout-time.Second), now), "stale %s", s)
	}
}

func TestReconcilerCustomTimeout(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	r := NewReconciler(time.Hour)
	assert.False(t, r.ShouldRecheck(indexstatus.PageWithRedirect, now.Add(-30*time.Minute), now))
	assert.True(t, r.ShouldRecheck(indexstatus.PageWithRedirect, now.Add(-2*time.Hour), now))
	assert.Equal(t, DefaultTimeout, NewReconciler(0).Timeout)
}

func TestSiteKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https_example.com_", SiteKey("https://example.com/"))
	assert.Equal(t, "http_example.com_blog/", SiteKey("http://example.com/blog/"))
	assert.Equal(t, "sc-domain:example.com", SiteKey("sc-domain:example.com"))
}

func TestEncodeDecodeRoundTripsFileLayout(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
  "https://a.com/x": {"status": "Submitted and indexed", "lastCheckedAt": "2025-01-02T03:04:05.000Z"}
}`)
	records, err := Decode(raw)
	require.NoError(t, err)
	require.Contains(t, records, "https://a.com/x")
	assert.Equal(t, indexstatus.SubmittedAndIndexed, records["https://a.com/x"].Status)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), records["https://a.com/x"].LastCheckedAt.UTC())

	data, err := Encode(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastCheckedAt"`)

	empty, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"https://a.com/": {"status": "Soft 404", "lastCheckedAt": "2025-01-02T03:04:05Z"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestRecordsClone(t *testing.T) {
	t.Parallel()

	var nilRecords Records
	assert.NotNil(t, nilRecords.Clone())

	orig := Records{"u": {Status: indexstatus.Error}}
	cp := orig.Clone()
	cp["u"] = Record{Status: indexstatus.Forbidden}
	assert.Equal(t, indexstatus.Error, orig["u"].Status)
}
