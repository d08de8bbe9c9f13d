// Package app initializes and holds long-lived services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/gsc-deindexer/internal/auth"
	"github.com/JakeFAU/gsc-deindexer/internal/cache"
	"github.com/JakeFAU/gsc-deindexer/internal/cache/gcs"
	"github.com/JakeFAU/gsc-deindexer/internal/cache/local"
	"github.com/JakeFAU/gsc-deindexer/internal/cache/postgres"
	"github.com/JakeFAU/gsc-deindexer/internal/cache/redis"
	"github.com/JakeFAU/gsc-deindexer/internal/clock/system"
	"github.com/JakeFAU/gsc-deindexer/internal/config"
	"github.com/JakeFAU/gsc-deindexer/internal/gsc"
	"github.com/JakeFAU/gsc-deindexer/internal/id/uuid"
	"github.com/JakeFAU/gsc-deindexer/internal/metrics"
	"github.com/JakeFAU/gsc-deindexer/internal/pipeline"
	"github.com/JakeFAU/gsc-deindexer/internal/policy/ratelimit"
	"github.com/JakeFAU/gsc-deindexer/internal/publisher/pubsub"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// App holds the shared services for one CLI invocation.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	cache     cache.Store
	publisher *pubsub.Publisher
	metrics   *metrics.Recorder
	limiter   *ratelimit.Limiter
}

// New builds every service from cfg and fails fast if any cannot start.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("initializing application services", zap.String("cache_provider", cfg.Cache.Provider))

	store, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("initialize cache: %w", err)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		cache:   store,
		metrics: metrics.New(),
	}
	a.limiter = ratelimit.New(ratelimit.Config{
		PerMinute: map[string]float64{
			gsc.APIInspection: cfg.GSC.InspectionQPM,
			gsc.APIIndexing:   cfg.GSC.IndexingQPM,
		},
	}, a.metrics)

	if cfg.PublishEnabled() {
		logger.Info("publishing run reports to pubsub",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicID),
		)
		a.publisher, err = pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
	}

	return a, nil
}

func newCacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Provider {
	case config.CacheLocal:
		return local.New(local.Config{Dir: cfg.Local.Dir})
	case config.CacheGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.GCS.Bucket, Prefix: cfg.GCS.Prefix})
	case config.CacheRedis:
		return redis.New(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	case config.CachePostgres:
		return postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table})
	case config.CacheNoop:
		return cache.NoOpStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Metrics returns the run's metric recorder.
func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

// Connect loads credentials, verifies them with a first token fetch and
// returns an authenticated Google API client.
func (a *App) Connect(ctx context.Context) (pipeline.Remote, error) {
	ts, err := auth.TokenSource(ctx, auth.Config{
		ServiceAccountFile: a.cfg.Auth.ServiceAccountFile,
		ClientEmail:        a.cfg.Auth.ClientEmail,
		PrivateKey:         a.cfg.Auth.PrivateKey,
	})
	if err != nil {
		return nil, err
	}
	client, err := gsc.New(ctx,
		gsc.Config{
			Timeout: a.cfg.RequestTimeout(),
			Retry:   gsc.NewRetryPolicy(a.cfg.GSC.MaxRetries, retryBaseDelay, retryMaxDelay),
		},
		a.limiter, a.metrics, a.logger,
		option.WithHTTPClient(auth.HTTPClient(ctx, ts)),
	)
	if err != nil {
		return nil, fmt.Errorf("create gsc client: %w", err)
	}
	return client, nil
}

// Runner wires the pipeline to this App's services.
func (a *App) Runner() *pipeline.Runner {
	deps := pipeline.Deps{
		Connect:  a.Connect,
		Cache:    a.cache,
		Clock:    system.New(),
		IDs:      uuid.New(),
		Recorder: a.metrics,
		Logger:   a.logger,
	}
	if a.publisher != nil {
		deps.Publisher = a.publisher
	}
	if a.cfg.Metrics.PushgatewayURL != "" {
		deps.Pusher = gatewayPusher{recorder: a.metrics, url: a.cfg.Metrics.PushgatewayURL, job: a.cfg.Metrics.Job}
	}
	return pipeline.New(deps, pipeline.Config{
		Concurrency:  a.cfg.Poll.Concurrency,
		CacheTimeout: a.cfg.Poll.CacheTimeout,
	})
}

type gatewayPusher struct {
	recorder *metrics.Recorder
	url      string
	job      string
}

func (p gatewayPusher) Push(ctx context.Context, site string) error {
	return p.recorder.Push(ctx, p.url, p.job, site)
}

// Close shuts down all services. It is called by a Cobra hook after the command finishes.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("error closing cache store", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
		}
	}
	// Sync errors on stderr/stdout are expected on some platforms.
	_ = a.logger.Sync()
}

// Run executes one pipeline run.
func (a *App) Run(ctx context.Context, opts pipeline.Options) (pipeline.Result, error) {
	return a.Runner().Run(ctx, opts)
}
