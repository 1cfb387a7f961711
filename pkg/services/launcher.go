package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// transientRetryInterval is the fixed wait between submission attempts
// and the forced poll delay while the engine is throttling. Transient
// faults are expected to clear, so submission retries are unbounded.
const transientRetryInterval = 2000 * time.Millisecond

// launcher implements the Launcher interface.
type launcher struct {
	engine        repositories.QueryEngine
	logger        Logger
	metrics       MetricsCollector
	retryInterval time.Duration
}

// NewLauncher creates a new execution launcher.
func NewLauncher(engine repositories.QueryEngine, logger Logger, metrics MetricsCollector) Launcher {
	return &launcher{
		engine:        engine,
		logger:        logger,
		metrics:       metrics,
		retryInterval: transientRetryInterval,
	}
}

// Submit sends a query for execution, retrying transient faults on a
// fixed interval with no retry bound. Any non-transient fault fails
// immediately as a submission error. The request is not mutated after
// the first attempt; the idempotency token assigned here stays fixed
// across retries.
func (l *launcher) Submit(ctx context.Context, req *models.ExecutionRequest) (string, error) {
	if req == nil {
		return "", errors.New(errors.CodeInvalidRequest, "execution request cannot be nil")
	}
	if req.Query == "" {
		return "", errors.ErrInvalidQuery.WithDetail("query", "cannot be empty")
	}
	if req.ClientToken == "" {
		req.ClientToken = uuid.NewString()
	}

	attempt := 0
	for {
		attempt++
		handle, err := l.engine.Submit(ctx, req)
		if err == nil {
			l.metrics.IncrementCounter("submissions_total")
			l.metrics.RecordGauge("submission_attempts", float64(attempt))
			l.logger.Info("query submitted",
				"handle", handle,
				"attempts", attempt)
			return handle, nil
		}

		if !errors.IsTransient(err) {
			l.metrics.IncrementCounter("submission_failures_total")
			l.logger.Error("query submission failed",
				"error", err,
				"attempts", attempt)
			return "", errors.Wrap(err, errors.CodeSubmissionFailed, "query submission failed")
		}

		l.metrics.IncrementCounter("submission_transient_retries_total")
		l.logger.Warn("transient fault during submission, retrying",
			"error", err,
			"attempt", attempt,
			"retry_in", l.retryInterval)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}
