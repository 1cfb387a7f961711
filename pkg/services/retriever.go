package services

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/skiffdb/skiff/pkg/cache"
	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/infrastructure/converter"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// defaultPageSize bounds a paged fetch when a cursor is supplied without
// an explicit page size.
const defaultPageSize = 1000

// retriever implements the Retriever interface.
type retriever struct {
	engine       repositories.QueryEngine
	store        repositories.ObjectStore
	materializer *converter.Materializer
	schemas      *cache.SchemaCache
	logger       Logger
	metrics      MetricsCollector
}

// NewRetriever creates a new result retriever.
func NewRetriever(
	engine repositories.QueryEngine,
	store repositories.ObjectStore,
	materializer *converter.Materializer,
	schemas *cache.SchemaCache,
	logger Logger,
	metrics MetricsCollector,
) Retriever {
	return &retriever{
		engine:       engine,
		store:        store,
		materializer: materializer,
		schemas:      schemas,
		logger:       logger,
		metrics:      metrics,
	}
}

// Fetch retrieves results for a completed execution using the strategy
// selected from the options.
func (r *retriever) Fetch(ctx context.Context, handle string, completed *CompletionResult, opts FetchOptions) (*models.Result, error) {
	if completed == nil {
		return nil, errors.New(errors.CodeInvalidRequest, "completion result is required")
	}
	if completed.State != models.StateSucceeded {
		return nil, errors.Newf(errors.CodeInvalidRequest,
			"cannot fetch results of execution in state %s", completed.State)
	}

	strategy, err := selectStrategy(opts)
	if err != nil {
		return nil, err
	}

	r.metrics.IncrementCounter("fetches_total", "strategy", strategy.String())
	r.logger.Debug("fetching results",
		"handle", handle,
		"strategy", strategy.String())

	switch strategy {
	case strategyStatementOutput:
		return r.fetchStatementOutput(ctx, completed.OutputLocation)
	case strategyPagedRaw, strategyPagedTyped:
		return r.fetchPage(ctx, handle, opts, strategy == strategyPagedTyped)
	default:
		return r.fetchFull(ctx, handle, completed, opts, strategy == strategyFullTyped)
	}
}

// fetchStatementOutput parses the text output of a utility or DDL
// statement. Lines with a tab become {field: value}; bare lines become
// {row: value}; blank lines are dropped. No schema is applied.
func (r *retriever) fetchStatementOutput(ctx context.Context, location string) (*models.Result, error) {
	body, err := r.store.Get(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var records []models.TypedRecord
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if tab := strings.IndexByte(line, '\t'); tab >= 0 {
			records = append(records, models.TypedRecord{line[:tab]: line[tab+1:]})
		} else {
			records = append(records, models.TypedRecord{"row": trimmed})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read statement output")
	}
	return &models.Result{Records: records}, nil
}

// fetchPage retrieves one page of rows directly from the engine. On the
// first page (no cursor) the engine prepends a header row, so one extra
// row is requested and the header sliced off; subsequent pages request
// the page size exactly. Token handling guarantees consecutive pages
// neither skip nor duplicate rows.
func (r *retriever) fetchPage(ctx context.Context, handle string, opts FetchOptions, typed bool) (*models.Result, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	firstPage := opts.NextToken == ""
	request := pageSize
	if firstPage {
		request++
	}

	page, err := r.engine.ResultPage(ctx, handle, request, opts.NextToken)
	if err != nil {
		return nil, err
	}

	rows := page.Rows
	if firstPage && len(rows) > 0 {
		rows = rows[1:]
	}

	if len(page.Columns) > 0 {
		r.schemas.Put(handle, page.Columns)
	}

	result := &models.Result{NextToken: page.NextToken}
	if typed {
		result.Records = make([]models.TypedRecord, 0, len(rows))
		for _, row := range rows {
			record, err := r.materializer.Materialize(row, page.Columns)
			if err != nil {
				return nil, err
			}
			result.Records = append(result.Records, record)
		}
		if opts.IncludeMetadata {
			result.Columns = page.Columns
		}
		r.metrics.RecordHistogram("rows_materialized", float64(len(result.Records)))
	} else {
		result.Rows = rows
		result.Columns = page.Columns
	}
	return result, nil
}

// fetchFull retrieves the entire result blob from the object store. Typed
// output is stream-parsed as delimited text and materialized against the
// schema; raw output returns each line verbatim in original order.
func (r *retriever) fetchFull(ctx context.Context, handle string, completed *CompletionResult, opts FetchOptions, typed bool) (*models.Result, error) {
	var schema models.Schema
	if typed || opts.IncludeMetadata {
		var err error
		schema, err = r.schemaFor(ctx, handle, completed)
		if err != nil {
			return nil, err
		}
	}

	body, err := r.store.Get(ctx, completed.OutputLocation)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	result := &models.Result{}
	if opts.IncludeMetadata {
		result.Columns = schema
	}

	if typed {
		records, err := r.materializeBlob(body, schema)
		if err != nil {
			return nil, err
		}
		result.Records = records
		r.metrics.RecordHistogram("rows_materialized", float64(len(records)))
		return result, nil
	}

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if opts.SkipBlank && strings.TrimSpace(line) == "" {
			continue
		}
		result.Lines = append(result.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read result blob")
	}
	return result, nil
}

// materializeBlob stream-parses a stored tabular result as delimited text.
// The leading header record names the columns and is not materialized.
func (r *retriever) materializeBlob(body io.Reader, schema models.Schema) ([]models.TypedRecord, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	var records []models.TypedRecord
	header := true
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to parse result blob")
		}
		if header {
			header = false
			continue
		}
		record, err := r.materializer.MaterializeFields(fields, schema)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// schemaFor resolves the execution's schema: the execution-scoped cache
// first, then the future warmed by the poller, and only as a last resort
// one fresh single-row metadata fetch. A schema already cached for the
// execution is never re-fetched.
func (r *retriever) schemaFor(ctx context.Context, handle string, completed *CompletionResult) (models.Schema, error) {
	if schema, ok := r.schemas.Get(handle); ok {
		return schema, nil
	}

	if completed.Schema != nil {
		schema, err := completed.Schema.Join(ctx)
		if err == nil {
			r.schemas.Put(handle, schema)
			return schema, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		r.logger.Warn("warmed schema unavailable, fetching fresh metadata",
			"handle", handle,
			"error", err)
	}

	page, err := r.engine.ResultPage(ctx, handle, 1, "")
	if err != nil {
		return nil, err
	}
	r.schemas.Put(handle, page.Columns)
	return page.Columns, nil
}
