package services

import (
	"context"
	"time"

	"github.com/skiffdb/skiff/pkg/cache"
	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// defaultPollInterval is the healthy-path status poll delay when the
// caller does not configure one.
const defaultPollInterval = 1000 * time.Millisecond

// poller implements the Poller interface. The state machine runs
// SUBMITTED -> RUNNING/QUEUED -> SUCCEEDED | FAILED; CANCELLED resolves
// on the failure path.
type poller struct {
	engine  repositories.QueryEngine
	schemas *cache.SchemaCache
	logger  Logger
	metrics MetricsCollector

	// backoffInterval replaces the caller's poll interval after a
	// transient fault, until a real status is observed again. The
	// caller-configured interval itself is never changed.
	backoffInterval time.Duration
}

// NewPoller creates a new completion poller.
func NewPoller(engine repositories.QueryEngine, schemas *cache.SchemaCache, logger Logger, metrics MetricsCollector) Poller {
	return &poller{
		engine:          engine,
		schemas:         schemas,
		logger:          logger,
		metrics:         metrics,
		backoffInterval: transientRetryInterval,
	}
}

// AwaitCompletion polls the execution status until terminal. On success
// it fires a single one-row metadata fetch in the background to warm the
// schema and returns the future alongside the result; callers join the
// future before using the schema.
func (p *poller) AwaitCompletion(ctx context.Context, handle string, pollInterval time.Duration) (*CompletionResult, error) {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	start := time.Now()
	delay := pollInterval
	polls := 0

	for {
		status, err := p.engine.Status(ctx, handle)
		if err != nil {
			if !errors.IsTransient(err) {
				p.logger.Error("status poll failed", "handle", handle, "error", err)
				return nil, err
			}
			// Throttled or unreachable: back off conservatively until a
			// real status comes through, then revert to the caller's pace.
			delay = p.backoffInterval
			p.metrics.IncrementCounter("poll_transient_retries_total")
			p.logger.Warn("transient fault while polling, backing off",
				"handle", handle,
				"error", err,
				"retry_in", delay)
		} else {
			polls++
			p.metrics.IncrementCounter("polls_total")
			delay = pollInterval

			switch status.State {
			case models.StateSucceeded:
				p.metrics.RecordHistogram("time_to_completion_seconds", time.Since(start).Seconds())
				p.logger.Info("query succeeded",
					"handle", handle,
					"polls", polls,
					"elapsed", time.Since(start))
				return &CompletionResult{
					State:          status.State,
					OutputLocation: status.OutputLocation,
					Schema:         p.warmSchema(ctx, handle),
				}, nil

			case models.StateFailed:
				p.metrics.IncrementCounter("query_failures_total")
				return nil, errors.QueryFailed(status.FailureReason)

			case models.StateCancelled:
				p.metrics.IncrementCounter("query_cancellations_total")
				reason := status.FailureReason
				if reason == "" {
					reason = "query cancelled"
				}
				return nil, errors.QueryFailed(reason)

			default:
				// QUEUED, RUNNING, or any other non-terminal state.
				p.logger.Debug("query still running",
					"handle", handle,
					"state", string(status.State),
					"polls", polls)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// warmSchema opportunistically fetches first-page metadata so the
// retriever can materialize without a duplicate metadata round trip. The
// fetch does not block completion; the returned future is the explicit
// hand-off.
func (p *poller) warmSchema(ctx context.Context, handle string) *cache.SchemaFuture {
	if schema, ok := p.schemas.Get(handle); ok {
		return cache.ResolvedSchemaFuture(schema)
	}

	future := cache.NewSchemaFuture()
	go func() {
		page, err := p.engine.ResultPage(ctx, handle, 1, "")
		if err != nil {
			p.logger.Warn("schema warm fetch failed", "handle", handle, "error", err)
			future.Complete(nil, err)
			return
		}
		p.schemas.Put(handle, page.Columns)
		future.Complete(page.Columns, nil)
	}()
	return future
}
