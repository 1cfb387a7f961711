package services

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
)

// statusStep scripts one Status observation from the fake engine.
type statusStep struct {
	status *models.ExecutionStatus
	err    error
}

// fakeEngine is a scripted engine: submissions consume submitErrs before
// succeeding, statuses are replayed in order (last one sticky), and
// result pages are served by pageFn.
type fakeEngine struct {
	mu sync.Mutex

	submitErrs   []error
	submitHandle string
	submitCalls  int
	submitTokens []string

	statuses    []statusStep
	statusCalls int

	pageFn    func(handle string, maxResults int32, nextToken string) (*models.ResultPage, error)
	pageCalls int
}

func (f *fakeEngine) Submit(ctx context.Context, req *models.ExecutionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitCalls++
	f.submitTokens = append(f.submitTokens, req.ClientToken)
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		return "", err
	}
	if f.submitHandle == "" {
		return "exec-1", nil
	}
	return f.submitHandle, nil
}

func (f *fakeEngine) Status(ctx context.Context, handle string) (*models.ExecutionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := f.statuses[len(f.statuses)-1]
	if f.statusCalls < len(f.statuses) {
		step = f.statuses[f.statusCalls]
	}
	f.statusCalls++
	return step.status, step.err
}

func (f *fakeEngine) ResultPage(ctx context.Context, handle string, maxResults int32, nextToken string) (*models.ResultPage, error) {
	f.mu.Lock()
	f.pageCalls++
	fn := f.pageFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New(errors.CodeInternal, "no page function scripted")
	}
	return fn(handle, maxResults, nextToken)
}

func (f *fakeEngine) calls() (submit, status, page int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.statusCalls, f.pageCalls
}

// fakeStore serves blobs by location.
type fakeStore struct {
	mu    sync.Mutex
	blobs map[string]string
	calls int
}

func (f *fakeStore) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	blob, ok := f.blobs[location]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "no blob at %s", location)
	}
	return io.NopCloser(strings.NewReader(blob)), nil
}

// tableEngine builds a pageFn serving rows (header first) with integer
// offsets encoded as next tokens, the way a paging engine hands out
// opaque cursors.
func tablePageFn(columns models.Schema, rows []models.RawRow) func(string, int32, string) (*models.ResultPage, error) {
	return func(handle string, maxResults int32, nextToken string) (*models.ResultPage, error) {
		offset := 0
		if nextToken != "" {
			var err error
			offset, err = strconv.Atoi(nextToken)
			if err != nil {
				return nil, errors.Newf(errors.CodeInvalidRequest, "bad token %q", nextToken)
			}
		}
		end := offset + int(maxResults)
		if end > len(rows) {
			end = len(rows)
		}
		page := &models.ResultPage{
			Rows:    rows[offset:end],
			Columns: columns,
		}
		if end < len(rows) {
			page.NextToken = strconv.Itoa(end)
		}
		return page, nil
	}
}

// nopLogger discards all log output.
type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// nopMetrics discards all metrics.
type nopMetrics struct{}

func (nopMetrics) IncrementCounter(name string, labels ...string)               {}
func (nopMetrics) RecordHistogram(name string, value float64, labels ...string) {}
func (nopMetrics) RecordGauge(name string, value float64, labels ...string)     {}
func (nopMetrics) StartTimer(name string) Timer                                 { return nopTimer{} }

type nopTimer struct{}

func (nopTimer) Stop() time.Duration { return 0 }

func strPtr(s string) *string { return &s }
