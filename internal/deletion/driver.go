// Package deletion requests removal of indexed pages that no longer exist.
package deletion

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// MetadataProber returns the HTTP status of the publish-metadata lookup for a URL.
type MetadataProber interface {
	GetPublishMetadata(ctx context.Context, pageURL string) (int, error)
}

// Remover sends a removal request for a URL. Delivery is best effort: no
// confirmation is awaited.
type Remover interface {
	RequestDeletion(ctx context.Context, pageURL string) error
}

// Recorder receives removal outcomes.
type Recorder interface {
	ObserveRemoval(outcome Outcome)
}

// Outcome is the per-URL result of a reconciliation.
type Outcome string

// Outcomes.
const (
	OutcomeRequested        Outcome = "requested"
	OutcomeAlreadyRequested Outcome = "already_requested"
	OutcomePending          Outcome = "pending"
	OutcomeWouldRequest     Outcome = "would_request"
	OutcomeFailed           Outcome = "failed"
)

// Report lists URLs by outcome, each in processing order.
type Report struct {
	Requested        []string `json:"requested"`
	AlreadyRequested []string `json:"already_requested"`
	// Pending holds URLs whose metadata status was neither 404 nor below 400.
	Pending []string `json:"pending"`
	// WouldRequest is only filled in dry-run mode.
	WouldRequest []string `json:"would_request,omitempty"`
	// Failed holds URLs whose removal request returned an error.
	Failed []string `json:"failed,omitempty"`
}

// Config tunes the Driver.
type Config struct {
	DryRun bool
}

// Driver walks indexed URLs one at a time.
type Driver struct {
	prober   MetadataProber
	remover  Remover
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Driver. A nil recorder or logger is replaced with a no-op.
func New(prober MetadataProber, remover Remover, recorder Recorder, cfg Config, logger *zap.Logger) *Driver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		prober:   prober,
		remover:  remover,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// ReconcileDeletions processes urls sequentially in list order. A 404 from the
// metadata probe triggers one removal request; any other status below 400 means a
// removal was already requested; everything else is left for a later run.
// A failing probe aborts the remaining URLs.
func (d *Driver) ReconcileDeletions(ctx context.Context, urls []string) (Report, error) {
	report := Report{
		Requested:        []string{},
		AlreadyRequested: []string{},
		Pending:          []string{},
	}
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconcile deletions: %w", err)
		}
		outcome, err := d.reconcile(ctx, url)
		if err != nil {
			return report, err
		}
		switch outcome {
		case OutcomeRequested:
			report.Requested = append(report.Requested, url)
		case OutcomeAlreadyRequested:
			report.AlreadyRequested = append(report.AlreadyRequested, url)
		case OutcomeWouldRequest:
			report.WouldRequest = append(report.WouldRequest, url)
		case OutcomeFailed:
			report.Failed = append(report.Failed, url)
		default:
			report.Pending = append(report.Pending, url)
		}
		d.recorder.ObserveRemoval(outcome)
	}
	return report, nil
}

func (d *Driver) reconcile(ctx context.Context, url string) (Outcome, error) {
	d.logger.Info("processing url", zap.String("url", url))

	status, err := d.prober.GetPublishMetadata(ctx, url)
	if err != nil {
		return "", fmt.Errorf("publish metadata %s: %w", url, err)
	}

	switch {
	case status == http.StatusNotFound:
		if d.cfg.DryRun {
			d.logger.Info("dry run: removal not requested", zap.String("url", url))
			return OutcomeWouldRequest, nil
		}
		if err := d.remover.RequestDeletion(ctx, url); err != nil {
			d.logger.Error("removal request failed", zap.String("url", url), zap.Error(err))
			return OutcomeFailed, nil
		}
		d.logger.Info("removal requested; processing may take a few days", zap.String("url", url))
		return OutcomeRequested, nil
	case status < http.StatusBadRequest:
		d.logger.Info("removal already requested previously", zap.String("url", url), zap.Int("http_status", status))
		return OutcomeAlreadyRequested, nil
	default:
		d.logger.Warn("metadata status not eligible for removal", zap.String("url", url), zap.Int("http_status", status))
		return OutcomePending, nil
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveRemoval(Outcome) {}
