// Package poller builds the per-URL status map for a site, reusing cached
// records when the cache reconciler allows it and fetching the rest in batches.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gsc-deindexer/internal/batch"
	"github.com/JakeFAU/gsc-deindexer/internal/cache"
	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

// DefaultConcurrency is the number of inspections in flight per batch.
const DefaultConcurrency = 50

// Inspector fetches the raw indexing verdict for one URL of a site.
type Inspector interface {
	InspectURL(ctx context.Context, siteURL, pageURL string) indexstatus.RawVerdict
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Recorder receives polling observations.
type Recorder interface {
	ObserveStatus(status indexstatus.Status)
	ObserveCacheHit()
}

// Groups maps each status to the URLs currently holding it, in input order.
type Groups map[indexstatus.Status][]string

// Deletable returns the URLs of every deletable status.
func (g Groups) Deletable() []string {
	var out []string
	for _, s := range indexstatus.Deletable {
		out = append(out, g[s]...)
	}
	return out
}

// Counts returns the number of URLs per status, omitting empty groups.
func (g Groups) Counts() map[indexstatus.Status]int {
	out := make(map[indexstatus.Status]int)
	for s, urls := range g {
		if len(urls) > 0 {
			out[s] = len(urls)
		}
	}
	return out
}

// Result is the outcome of Poll.
type Result struct {
	Records cache.Records
	Groups  Groups
	// Fetched counts remote inspections issued during the call.
	Fetched int
}

// Config tunes the Poller.
type Config struct {
	Concurrency  int
	CacheTimeout time.Duration
}

// Poller composes the cache reconciler, batch runner and Inspector.
type Poller struct {
	inspector  Inspector
	reconciler cache.Reconciler
	clock      Clock
	recorder   Recorder
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Poller. A nil recorder or logger is replaced with a no-op.
func New(inspector Inspector, clock Clock, recorder Recorder, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		inspector:  inspector,
		reconciler: cache.NewReconciler(cfg.CacheTimeout),
		clock:      clock,
		recorder:   recorder,
		cfg:        cfg,
		logger:     logger,
	}
}

// Poll returns the status of every URL in urls. Records from existing are kept
// as-is unless missing or due for a recheck; existing itself is not modified.
// A URL listed more than once is inspected at most once.
// Records for URLs outside urls are carried over untouched.
func (p *Poller) Poll(ctx context.Context, siteURL string, urls []string, existing cache.Records) (Result, error) {
	records := existing.Clone()
	var (
		mu      sync.Mutex
		fetched int
		// claimed holds URLs already inspected (or in flight) during this call.
		claimed = make(map[string]struct{}, len(urls))
	)

	op := func(ctx context.Context, url string) error {
		mu.Lock()
		if _, dup := claimed[url]; dup {
			mu.Unlock()
			return nil
		}
		rec, ok := records[url]
		if ok && !p.reconciler.ShouldRecheck(rec.Status, rec.LastCheckedAt, p.clock.Now()) {
			mu.Unlock()
			p.recorder.ObserveCacheHit()
			return nil
		}
		claimed[url] = struct{}{}
		mu.Unlock()

		verdict := p.inspector.InspectURL(ctx, siteURL, url)
		status, err := indexstatus.Classify(verdict)
		if err != nil {
			return fmt.Errorf("classify %s: %w", url, err)
		}
		if verdict.Err != nil {
			p.logger.Warn("inspection failed", zap.String("url", url), zap.Error(verdict.Err))
		}
		p.recorder.ObserveStatus(status)

		mu.Lock()
		records[url] = cache.Record{Status: status, LastCheckedAt: p.clock.Now()}
		fetched++
		mu.Unlock()
		return nil
	}

	progress := func(index, total int) {
		p.logger.Info("batch complete", zap.Int("batch", index+1), zap.Int("batches", total))
	}

	if err := batch.Run(ctx, op, urls, p.cfg.Concurrency, progress); err != nil {
		return Result{}, fmt.Errorf("poll %s: %w", siteURL, err)
	}

	return Result{
		Records: records,
		Groups:  GroupByStatus(urls, records),
		Fetched: fetched,
	}, nil
}

// GroupByStatus places each URL, in input order, into the group of its record's
// status. Duplicated input URLs appear once per occurrence.
func GroupByStatus(urls []string, records cache.Records) Groups {
	groups := make(Groups, len(indexstatus.All))
	for _, s := range indexstatus.All {
		groups[s] = []string{}
	}
	for _, url := range urls {
		rec, ok := records[url]
		if !ok {
			continue
		}
		groups[rec.Status] = append(groups[rec.Status], url)
	}
	return groups
}

type nopRecorder struct{}

func (nopRecorder) ObserveStatus(indexstatus.Status) {}
func (nopRecorder) ObserveCacheHit()                 {}
