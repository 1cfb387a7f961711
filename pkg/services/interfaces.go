// Package services contains the query orchestration logic: submission,
// completion polling, and result retrieval.
package services

import (
	"context"
	"time"

	"github.com/skiffdb/skiff/pkg/cache"
	"github.com/skiffdb/skiff/pkg/models"
)

// Launcher submits queries to the engine, absorbing transient faults.
type Launcher interface {
	// Submit sends the query and returns its execution handle. Transient
	// engine faults are retried unboundedly on a fixed interval; any
	// other fault fails immediately with a submission error.
	Submit(ctx context.Context, req *models.ExecutionRequest) (string, error)
}

// CompletionResult is the poller's terminal observation of an execution.
type CompletionResult struct {
	State models.ExecutionState
	// OutputLocation is the engine-reported location of the result blob.
	OutputLocation string
	// Schema is the promise for the schema warmed opportunistically on
	// success. Join it before materializing; never read it implicitly.
	Schema *cache.SchemaFuture
}

// Poller drives the execution status state machine to a terminal state.
type Poller interface {
	// AwaitCompletion polls until the execution reaches SUCCEEDED,
	// returning a CompletionResult, or FAILED/CANCELLED, returning a
	// query-failed error carrying the engine's reason verbatim.
	AwaitCompletion(ctx context.Context, handle string, pollInterval time.Duration) (*CompletionResult, error)
}

// Retriever fetches the result set of a completed execution using one of
// the closed set of retrieval strategies.
type Retriever interface {
	Fetch(ctx context.Context, handle string, completed *CompletionResult, opts FetchOptions) (*models.Result, error)
}

// QueryService runs the full submit, poll, fetch pipeline for one query.
type QueryService interface {
	Query(ctx context.Context, req *models.ExecutionRequest, opts QueryOptions) (*models.Result, error)
}

// QueryOptions configures one end-to-end query run.
type QueryOptions struct {
	// PollInterval is the healthy-path status poll delay. Zero selects
	// the default. Throttling backoff is fixed and not affected by it.
	PollInterval time.Duration
	// Fetch configures the result retrieval step.
	Fetch FetchOptions
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
