// Package repositories defines the contracts the orchestrator requires of
// its remote collaborators: the asynchronous query engine and the object
// store holding result blobs.
package repositories

import (
	"context"
	"io"

	"github.com/skiffdb/skiff/pkg/models"
)

// QueryEngine is the asynchronous query engine contract. Implementations
// must translate provider faults into the pkg/errors taxonomy so the
// orchestrator can classify them as transient or fatal.
type QueryEngine interface {
	// Submit sends a query for execution and returns the execution handle.
	Submit(ctx context.Context, req *models.ExecutionRequest) (string, error)

	// Status fetches the current execution status for a handle.
	Status(ctx context.Context, handle string) (*models.ExecutionStatus, error)

	// ResultPage fetches one page of structured rows for a completed
	// execution. An empty nextToken requests the first page, which
	// includes the engine's header row.
	ResultPage(ctx context.Context, handle string, maxResults int32, nextToken string) (*models.ResultPage, error)
}

// ObjectStore is the result blob store contract. The location is the
// engine-reported output location, e.g. "s3://bucket/prefix/handle.csv".
type ObjectStore interface {
	Get(ctx context.Context, location string) (io.ReadCloser, error)
}
