// Package models provides data structures used throughout the query orchestrator.
package models

// ExecutionRequest describes one query to submit to the engine.
// It is immutable once submitted.
type ExecutionRequest struct {
	Query          string          `json:"query"`
	Workgroup      string          `json:"workgroup,omitempty"`
	OutputLocation string          `json:"output_location,omitempty"`
	Database       string          `json:"database,omitempty"`
	Catalog        string          `json:"catalog,omitempty"`
	Parameters     []string        `json:"parameters,omitempty"`
	Encryption     *EncryptionSpec `json:"encryption,omitempty"`

	// ClientToken makes resubmission of the same request idempotent on
	// the engine side. The launcher assigns one before the first attempt;
	// it stays fixed across transient-fault retries.
	ClientToken string `json:"client_token,omitempty"`
}

// EncryptionSpec configures server-side encryption of stored results.
type EncryptionSpec struct {
	Option string `json:"option"`
	KMSKey string `json:"kms_key,omitempty"`
}

// ExecutionState is an engine-reported execution lifecycle state.
type ExecutionState string

const (
	// StateSubmitted is the poller's initial state upon receipt of a handle.
	StateSubmitted ExecutionState = "SUBMITTED"
	// StateQueued indicates the engine has accepted but not started the query.
	StateQueued ExecutionState = "QUEUED"
	// StateRunning indicates the query is executing.
	StateRunning ExecutionState = "RUNNING"
	// StateSucceeded is the successful terminal state.
	StateSucceeded ExecutionState = "SUCCEEDED"
	// StateFailed is the failure terminal state.
	StateFailed ExecutionState = "FAILED"
	// StateCancelled indicates the execution was cancelled on the engine side.
	StateCancelled ExecutionState = "CANCELLED"
)

// IsTerminal reports whether the state ends the poll loop.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ExecutionStatus is one observation of an execution's engine-side status.
type ExecutionStatus struct {
	State ExecutionState `json:"state"`
	// FailureReason carries the engine's stated reason when State is
	// FAILED or CANCELLED, verbatim.
	FailureReason string `json:"failure_reason,omitempty"`
	// OutputLocation is the engine-reported location of the stored
	// result blob, e.g. "s3://bucket/prefix/execution-id.csv".
	OutputLocation string `json:"output_location,omitempty"`
}

// Column describes one result column: its name and declared primitive type.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the ordered column-name-to-type mapping describing a result
// set's shape. It is produced once per execution from engine metadata and
// treated as read-only afterwards.
type Schema []Column

// RawRow is the structured raw representation of one result row: one
// optional string cell per column, in schema order. A nil cell means the
// engine reported no value for that column.
type RawRow struct {
	Values []*string `json:"values"`
}

// ResultPage is one page of structured rows fetched directly from the engine.
type ResultPage struct {
	Rows      []RawRow `json:"rows"`
	Columns   Schema   `json:"columns"`
	NextToken string   `json:"next_token,omitempty"`
}

// TypedRecord maps column names to coerced values: string, bool, int64,
// *big.Int, float64, or nil. It is pure output with no further lifecycle.
type TypedRecord map[string]interface{}

// Result is the retriever's output. Exactly one of Records, Rows, or
// Lines is populated, depending on the selected retrieval strategy.
type Result struct {
	// Records holds typed records (typed strategies and statement output).
	Records []TypedRecord `json:"records,omitempty"`
	// Rows holds raw structured rows (paginated raw strategy).
	Rows []RawRow `json:"rows,omitempty"`
	// Lines holds raw text lines in original order (full raw strategy).
	Lines []string `json:"lines,omitempty"`
	// NextToken resumes paged retrieval at the next row, when paging.
	NextToken string `json:"next_token,omitempty"`
	// Columns carries column metadata when the caller requested it.
	Columns Schema `json:"columns,omitempty"`
}
