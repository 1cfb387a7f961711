package services

import (
	"github.com/skiffdb/skiff/pkg/errors"
)

// FetchOptions configures result retrieval for one completed execution.
type FetchOptions struct {
	// PageSize requests paged retrieval from the engine with at most
	// this many rows per page. Zero selects full retrieval from the
	// object store.
	PageSize int32
	// NextToken resumes paged retrieval at the cursor returned by a
	// previous page.
	NextToken string
	// Typed selects materialization into typed records; otherwise rows
	// are returned raw.
	Typed bool
	// IncludeMetadata attaches column metadata to the result. For full
	// raw retrieval this is what triggers the schema round trip at all.
	IncludeMetadata bool
	// SkipBlank drops empty lines from full raw retrieval.
	SkipBlank bool
	// Statement is the classification of the submitted query; utility
	// and DDL statements produce plain-text statement output.
	Statement StatementType
}

// retrievalStrategy is the closed set of retrieval behaviors. Exactly one
// is selected per fetch from validated options; there is no fallthrough
// between strategies.
type retrievalStrategy int

const (
	strategyStatementOutput retrievalStrategy = iota
	strategyPagedRaw
	strategyPagedTyped
	strategyFullRaw
	strategyFullTyped
)

// String returns the strategy name for logs and metrics.
func (s retrievalStrategy) String() string {
	switch s {
	case strategyStatementOutput:
		return "statement_output"
	case strategyPagedRaw:
		return "paged_raw"
	case strategyPagedTyped:
		return "paged_typed"
	case strategyFullRaw:
		return "full_raw"
	case strategyFullTyped:
		return "full_typed"
	default:
		return "unknown"
	}
}

// selectStrategy picks the retrieval strategy from the options, rejecting
// inconsistent combinations rather than silently preferring one flag.
func selectStrategy(opts FetchOptions) (retrievalStrategy, error) {
	paged := opts.PageSize > 0 || opts.NextToken != ""

	if opts.Statement.IsStatementOutput() {
		if paged {
			return 0, errors.New(errors.CodeInvalidRequest,
				"statement output cannot be paginated")
		}
		return strategyStatementOutput, nil
	}

	switch {
	case paged && opts.Typed:
		return strategyPagedTyped, nil
	case paged:
		return strategyPagedRaw, nil
	case opts.Typed:
		return strategyFullTyped, nil
	default:
		return strategyFullRaw, nil
	}
}
