// Package pipeline runs the two-phase workflow: poll every URL, persist the
// cache, then reconcile deletions for indexed pages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gsc-deindexer/internal/auth"
	"github.com/JakeFAU/gsc-deindexer/internal/cache"
	"github.com/JakeFAU/gsc-deindexer/internal/deletion"
	"github.com/JakeFAU/gsc-deindexer/internal/gsc"
	"github.com/JakeFAU/gsc-deindexer/internal/poller"
	"github.com/JakeFAU/gsc-deindexer/internal/report"
)

var (
	// ErrMissingCredentials is returned when credentials are absent or rejected.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrNoInputURLs is returned for an empty URL list.
	ErrNoInputURLs = errors.New("no input urls")
)

// Remote is everything the run needs from the Google APIs.
type Remote interface {
	poller.Inspector
	deletion.MetadataProber
	deletion.Remover
}

// Connector authenticates and returns a Remote. It is called once per run,
// after input validation.
type Connector func(ctx context.Context) (Remote, error)

// Publisher sends the final report somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// Pusher ships the run's metrics.
type Pusher interface {
	Push(ctx context.Context, site string) error
}

// Recorder is the union of the poller and deletion recorders.
type Recorder interface {
	poller.Recorder
	deletion.Recorder
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps are the collaborators of a Runner. Recorder, Publisher, Pusher and
// Logger are optional.
type Deps struct {
	Connect   Connector
	Cache     cache.Store
	Clock     poller.Clock
	IDs       IDGenerator
	Recorder  Recorder
	Publisher Publisher
	Pusher    Pusher
	Logger    *zap.Logger
}

// Config tunes polling.
type Config struct {
	Concurrency  int
	CacheTimeout time.Duration
}

// Options describe one run.
type Options struct {
	// SiteInput is a URL-prefix property or a bare domain.
	SiteInput    string
	URLs         []string
	DryRun       bool
	SkipDeletion bool
}

// Result is everything a run produced.
type Result struct {
	SiteURL  string
	Poll     poller.Result
	Deletion *deletion.Report
	Report   report.Report
}

// Runner executes runs.
type Runner struct {
	deps Deps
	cfg  Config
}

// New constructs a Runner.
func New(deps Deps, cfg Config) *Runner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NoOpStore{}
	}
	return &Runner{deps: deps, cfg: cfg}
}

// Run performs one poll-then-delete pass. Publishing and metric push failures
// are logged and do not fail the run.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	if len(opts.URLs) == 0 {
		return Result{}, ErrNoInputURLs
	}

	started := r.deps.Clock.Now()
	runID, err := r.deps.IDs.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("run id: %w", err)
	}
	logger := r.deps.Logger.With(zap.String("run_id", runID))

	remote, err := r.deps.Connect(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredentials) || errors.Is(err, auth.ErrInvalidCredentials) {
			return Result{}, fmt.Errorf("%w: %w", ErrMissingCredentials, err)
		}
		return Result{}, fmt.Errorf("connect: %w", err)
	}

	site := gsc.ConvertToSiteURL(opts.SiteInput)
	logger = logger.With(zap.String("site", site))
	logger.Info("processing site", zap.Int("urls", len(opts.URLs)))

	existing, err := r.deps.Cache.Load(ctx, site)
	if err != nil {
		return Result{}, fmt.Errorf("load cache: %w", err)
	}

	p := poller.New(remote, r.deps.Clock, r.deps.Recorder, poller.Config{
		Concurrency:  r.cfg.Concurrency,
		CacheTimeout: r.cfg.CacheTimeout,
	}, logger)
	polled, err := p.Poll(ctx, site, opts.URLs, existing)
	if err != nil {
		return Result{}, err
	}

	if err := r.deps.Cache.Save(ctx, site, polled.Records); err != nil {
		return Result{}, fmt.Errorf("save cache: %w", err)
	}
	logger.Info("status check complete", zap.Int("fetched", polled.Fetched), zap.Int("cached", len(opts.URLs)-polled.Fetched))

	res := Result{SiteURL: site, Poll: polled}
	if !opts.SkipDeletion {
		deletable := polled.Groups.Deletable()
		d := deletion.New(remote, remote, r.deps.Recorder, deletion.Config{DryRun: opts.DryRun}, logger)
		del, err := d.ReconcileDeletions(ctx, deletable)
		if err != nil {
			return res, fmt.Errorf("reconcile deletions: %w", err)
		}
		res.Deletion = &del
	}

	res.Report = report.Build(runID, site, opts.URLs, polled, res.Deletion, started, r.deps.Clock.Now(), opts.DryRun)
	r.publish(ctx, logger, res.Report)
	return res, nil
}

func (r *Runner) publish(ctx context.Context, logger *zap.Logger, rep report.Report) {
	if r.deps.Publisher != nil {
		id, err := r.deps.Publisher.Publish(ctx, rep, rep.Attributes())
		if err != nil {
			logger.Error("failed to publish report", zap.Error(err))
		} else {
			logger.Info("report published", zap.String("message_id", id))
		}
	}
	if r.deps.Pusher != nil {
		if err := r.deps.Pusher.Push(ctx, rep.Site); err != nil {
			logger.Error("failed to push metrics", zap.Error(err))
		}
	}
}
