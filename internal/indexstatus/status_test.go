package indexstatus

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTransportOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verdict RawVerdict
		want    Status
	}{
		{name: "rate limited", verdict: RawVerdict{HTTPStatus: http.StatusTooManyRequests}, want: RateLimited},
		{name: "forbidden", verdict: RawVerdict{HTTPStatus: http.StatusForbidden}, want: Forbidden},
		{name: "server error", verdict: RawVerdict{HTTPStatus: http.StatusInternalServerError}, want: Error},
		{name: "bad request", verdict: RawVerdict{HTTPStatus: http.StatusBadRequest}, want: Error},
		{name: "network error", verdict: RawVerdict{Err: errors.New("dial tcp: timeout")}, want: Error},
		{
			name:    "forbidden wins over error",
			verdict: RawVerdict{HTTPStatus: http.StatusForbidden, Err: errors.New("forbidden")},
			want:    Forbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Classify(tt.verdict)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCoverageStates(t *testing.T) {
	t.Parallel()

	tests := map[string]Status{
		"Submitted and indexed":                     SubmittedAndIndexed,
		"Indexed, not submitted in sitemap":         SubmittedAndIndexed,
		"Duplicate without user-selected canonical": DuplicateWithoutUserSelectedCanonical,
		"Crawled - currently not indexed":           CrawledCurrentlyNotIndexed,
		"Discovered - currently not indexed":        DiscoveredCurrentlyNotIndexed,
		"Page with redirect":                        PageWithRedirect,
		"URL is unknown to Google":                  URLIsUnknownToGoogle,
		"  url is unknown to google ":               URLIsUnknownToGoogle,
	}
	for state, want := range tests {
		got, err := Classify(RawVerdict{HTTPStatus: http.StatusOK, CoverageState: state})
		require.NoError(t, err, state)
		assert.Equal(t, want, got, state)
	}
}

func TestClassifyUnknownStateFailsLoudly(t *testing.T) {
	t.Parallel()

	got, err := Classify(RawVerdict{HTTPStatus: http.StatusOK, Verdict: "NEUTRAL", CoverageState: "Blocked by robots.txt"})
	require.ErrorIs(t, err, ErrUnmappedStatus)
	assert.Empty(t, got)
	assert.False(t, got.IsDeletable())

	_, err = Classify(RawVerdict{HTTPStatus: http.StatusOK})
	require.ErrorIs(t, err, ErrUnmappedStatus)
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	for _, s := range All {
		assert.True(t, s.IsValid(), s)
		assert.NotEmpty(t, s.Emoji(), s)
	}
	assert.False(t, Status("Soft 404").IsValid())
	assert.True(t, SubmittedAndIndexed.IsDeletable())
	assert.False(t, URLIsUnknownToGoogle.IsDeletable())
	assert.False(t, RateLimited.IsDeletable())
	assert.Equal(t, "🚦", RateLimited.Emoji())
	assert.Equal(t, "❌", Forbidden.Emoji())
}
