// Package gsc adapts the Search Console URL Inspection and Indexing APIs to the
// interfaces used by the poller and the deletion driver.
package gsc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/indexing/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

// API names used as rate-limit keys and metric labels.
const (
	APIInspection = "inspection"
	APIIndexing   = "indexing"
)

const notificationURLDeleted = "URL_DELETED"

// Limiter paces calls per API.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Recorder receives one observation per HTTP exchange.
type Recorder interface {
	ObserveAPICall(api string, code int)
}

// Config tunes the Client.
type Config struct {
	Timeout time.Duration
	Retry   *RetryPolicy
}

// Client talks to the Search Console and Indexing services.
type Client struct {
	inspection *searchconsole.Service
	indexing   *indexing.Service
	limiter    Limiter
	recorder   Recorder
	retry      *RetryPolicy
	timeout    time.Duration
	logger     *zap.Logger
}

// New builds both services from the same client options, usually an
// authenticated option.WithHTTPClient. limiter and recorder may be nil.
func New(
	ctx context.Context,
	cfg Config,
	limiter Limiter,
	recorder Recorder,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*Client, error) {
	inspection, err := searchconsole.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create search console service: %w", err)
	}
	idx, err := indexing.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create indexing service: %w", err)
	}
	if limiter == nil {
		limiter = unlimited{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		inspection: inspection,
		indexing:   idx,
		limiter:    limiter,
		recorder:   recorder,
		retry:      retry,
		timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

// InspectURL fetches the index status of pageURL within the siteURL property.
// Failures are carried in the verdict, never returned.
func (c *Client) InspectURL(ctx context.Context, siteURL, pageURL string) indexstatus.RawVerdict {
	resp, err := do(ctx, c, APIInspection, func(ctx context.Context) (*searchconsole.InspectUrlIndexResponse, error) {
		return c.inspection.UrlInspection.Index.Inspect(&searchconsole.InspectUrlIndexRequest{
			InspectionUrl: pageURL,
			SiteUrl:       siteURL,
		}).Context(ctx).Do()
	})
	if err != nil {
		return indexstatus.RawVerdict{HTTPStatus: StatusCode(err), Err: err}
	}

	verdict := indexstatus.RawVerdict{HTTPStatus: http.StatusOK}
	if resp.InspectionResult != nil && resp.InspectionResult.IndexStatusResult != nil {
		verdict.CoverageState = resp.InspectionResult.IndexStatusResult.CoverageState
		verdict.Verdict = resp.InspectionResult.IndexStatusResult.Verdict
	}
	return verdict
}

// GetPublishMetadata returns the HTTP status of the notification metadata lookup.
// 404 means no notification was ever published for the URL. Only transport
// failures without a status are returned as errors.
func (c *Client) GetPublishMetadata(ctx context.Context, pageURL string) (int, error) {
	resp, err := do(ctx, c, APIIndexing, func(ctx context.Context) (*indexing.UrlNotificationMetadata, error) {
		return c.indexing.UrlNotifications.GetMetadata().Url(pageURL).Context(ctx).Do()
	})
	if err != nil {
		if code := StatusCode(err); code != 0 {
			return code, nil
		}
		return 0, fmt.Errorf("get metadata: %w", err)
	}
	if resp.HTTPStatusCode == 0 {
		return http.StatusOK, nil
	}
	return resp.HTTPStatusCode, nil
}

// RequestDeletion publishes a URL_DELETED notification for pageURL.
func (c *Client) RequestDeletion(ctx context.Context, pageURL string) error {
	_, err := do(ctx, c, APIIndexing, func(ctx context.Context) (*indexing.PublishUrlNotificationResponse, error) {
		return c.indexing.UrlNotifications.Publish(&indexing.UrlNotification{
			Url:  pageURL,
			Type: notificationURLDeleted,
		}).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", notificationURLDeleted, err)
	}
	return nil
}

// do runs fn under the limiter with per-attempt timeouts and retries.
func do[T any](ctx context.Context, c *Client, api string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx, api); err != nil {
			return zero, err
		}

		v, err := attemptOnce(ctx, c, api, fn)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return zero, err
		}

		wait := c.retry.Backoff(attempt)
		c.logger.Debug("retrying api call",
			zap.String("api", api),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry %s: %w", api, ctx.Err())
		case <-timer.C:
		}
	}
}

func attemptOnce[T any](ctx context.Context, c *Client, api string, fn func(context.Context) (T, error)) (T, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	code := http.StatusOK
	if err != nil {
		code = StatusCode(err)
	}
	c.recorder.ObserveAPICall(api, code)
	return v, err
}

type unlimited struct{}

func (unlimited) Wait(context.Context, string) error { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveAPICall(string, int) {}
