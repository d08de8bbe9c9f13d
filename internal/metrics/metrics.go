// Package metrics exposes Prometheus collectors for a deindexer run.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/gsc-deindexer/internal/deletion"
	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

// Recorder owns a private registry so each run pushes only its own series.
type Recorder struct {
	registry *prometheus.Registry

	statusChecks   *prometheus.CounterVec
	cacheHits      prometheus.Counter
	apiCalls       *prometheus.CounterVec
	removals       *prometheus.CounterVec
	rateLimitDelay *prometheus.HistogramVec
}

// New registers the run collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		statusChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deindexer_status_checks_total",
				Help: "URLs classified by a fresh status fetch, labeled by status.",
			},
			[]string{"status"},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deindexer_cache_hits_total",
				Help: "URLs whose cached status was reused.",
			},
		),
		apiCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deindexer_api_calls_total",
				Help: "Google API requests, labeled by api and HTTP code (0 for transport failures).",
			},
			[]string{"api", "code"},
		),
		removals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deindexer_removals_total",
				Help: "Deletion reconciliation outcomes.",
			},
			[]string{"outcome"},
		),
		rateLimitDelay: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deindexer_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"api"},
		),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStatus counts a freshly fetched status.
func (r *Recorder) ObserveStatus(status indexstatus.Status) {
	r.statusChecks.WithLabelValues(string(status)).Inc()
}

// ObserveCacheHit counts a reused cache record.
func (r *Recorder) ObserveCacheHit() {
	r.cacheHits.Inc()
}

// ObserveAPICall counts one HTTP exchange.
func (r *Recorder) ObserveAPICall(api string, code int) {
	r.apiCalls.WithLabelValues(api, strconv.Itoa(code)).Inc()
}

// ObserveRemoval counts a deletion outcome.
func (r *Recorder) ObserveRemoval(outcome deletion.Outcome) {
	r.removals.WithLabelValues(string(outcome)).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func (r *Recorder) ObserveRateLimitDelay(api string, d time.Duration) {
	r.rateLimitDelay.WithLabelValues(api).Observe(d.Seconds())
}

// Push sends every collected series to a Pushgateway, grouped by site.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job, site string) error {
	err := push.New(gatewayURL, job).
		Gatherer(r.registry).
		Grouping("site", SanitizeSite(site)).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// SanitizeSite extracts a lowercase hostname from a site URL or a
// sc-domain property. It returns "unknown" if nothing usable remains.
func SanitizeSite(site string) string {
	site = strings.TrimPrefix(site, "sc-domain:")
	if !strings.HasPrefix(site, "http") {
		site = "http://" + site
	}
	u, err := url.Parse(site)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
