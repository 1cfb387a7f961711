package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiffdb/skiff/pkg/cache"
	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/models"
)

func statusOf(state models.ExecutionState) statusStep {
	return statusStep{status: &models.ExecutionStatus{State: state}}
}

func newTestPoller(engine *fakeEngine, schemas *cache.SchemaCache) *poller {
	p := NewPoller(engine, schemas, nopLogger{}, nopMetrics{}).(*poller)
	p.backoffInterval = time.Millisecond
	return p
}

func TestPollerResolvesAfterRunningStates(t *testing.T) {
	engine := &fakeEngine{
		statuses: []statusStep{
			statusOf(models.StateRunning),
			statusOf(models.StateRunning),
			{status: &models.ExecutionStatus{
				State:          models.StateSucceeded,
				OutputLocation: "s3://bucket/out.csv",
			}},
		},
		pageFn: tablePageFn(models.Schema{{Name: "a", Type: "varchar"}}, nil),
	}
	p := newTestPoller(engine, cache.NewSchemaCache())

	interval := 20 * time.Millisecond
	start := time.Now()
	completed, err := p.AwaitCompletion(context.Background(), "exec-1", interval)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, completed.State)
	assert.Equal(t, "s3://bucket/out.csv", completed.OutputLocation)
	assert.GreaterOrEqual(t, elapsed, 2*interval, "two non-terminal polls must each wait a full interval")

	_, statuses, _ := engine.calls()
	assert.Equal(t, 3, statuses, "exactly one status call per observed state")
}

func TestPollerSucceededWarmsSchema(t *testing.T) {
	schema := models.Schema{{Name: "id", Type: "bigint"}, {Name: "name", Type: "varchar"}}
	engine := &fakeEngine{
		statuses: []statusStep{statusOf(models.StateSucceeded)},
		pageFn:   tablePageFn(schema, []models.RawRow{{Values: []*string{strPtr("id"), strPtr("name")}}}),
	}
	schemas := cache.NewSchemaCache()
	p := newTestPoller(engine, schemas)

	completed, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, completed.Schema)

	warmed, err := completed.Schema.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema, warmed)

	cached, ok := schemas.Get("exec-1")
	require.True(t, ok)
	assert.Equal(t, schema, cached)

	_, _, pages := engine.calls()
	assert.Equal(t, 1, pages, "warm fetch is a single one-row metadata call")
}

func TestPollerSucceededUsesCachedSchema(t *testing.T) {
	schema := models.Schema{{Name: "id", Type: "bigint"}}
	engine := &fakeEngine{statuses: []statusStep{statusOf(models.StateSucceeded)}}
	schemas := cache.NewSchemaCache()
	schemas.Put("exec-1", schema)
	p := newTestPoller(engine, schemas)

	completed, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	require.NoError(t, err)

	warmed, err := completed.Schema.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema, warmed)

	_, _, pages := engine.calls()
	assert.Equal(t, 0, pages, "cached schema must never be re-fetched")
}

func TestPollerFailedCarriesEngineReason(t *testing.T) {
	engine := &fakeEngine{
		statuses: []statusStep{{status: &models.ExecutionStatus{
			State:         models.StateFailed,
			FailureReason: "SYNTAX_ERROR: line 1:8: Column 'nope' cannot be resolved",
		}}},
	}
	p := newTestPoller(engine, cache.NewSchemaCache())

	_, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsQueryFailed(err))
	assert.Equal(t, "SYNTAX_ERROR: line 1:8: Column 'nope' cannot be resolved", errors.GetMessage(err))

	_, statuses, _ := engine.calls()
	assert.Equal(t, 1, statuses, "terminal failure resolves with zero retries")
}

func TestPollerCancelledResolvesAsFailure(t *testing.T) {
	engine := &fakeEngine{
		statuses: []statusStep{{status: &models.ExecutionStatus{State: models.StateCancelled}}},
	}
	p := newTestPoller(engine, cache.NewSchemaCache())

	_, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsQueryFailed(err))
	assert.Equal(t, "query cancelled", errors.GetMessage(err))
}

func TestPollerBacksOffOnTransientFault(t *testing.T) {
	engine := &fakeEngine{
		statuses: []statusStep{
			{err: errors.New(errors.CodeThrottled, "rate exceeded")},
			{err: errors.New(errors.CodeNetwork, "connection reset")},
			statusOf(models.StateSucceeded),
		},
		pageFn: tablePageFn(models.Schema{}, nil),
	}
	p := newTestPoller(engine, cache.NewSchemaCache())
	p.backoffInterval = 15 * time.Millisecond

	start := time.Now()
	completed, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, completed.State)
	assert.GreaterOrEqual(t, elapsed, 2*p.backoffInterval, "each transient fault waits the full backoff interval")
}

func TestPollerFatalStatusErrorPropagates(t *testing.T) {
	engine := &fakeEngine{
		statuses: []statusStep{{err: errors.New(errors.CodeInternal, "engine exploded")}},
	}
	p := newTestPoller(engine, cache.NewSchemaCache())

	_, err := p.AwaitCompletion(context.Background(), "exec-1", time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))

	_, statuses, _ := engine.calls()
	assert.Equal(t, 1, statuses)
}

func TestPollerContextCancelled(t *testing.T) {
	engine := &fakeEngine{statuses: []statusStep{statusOf(models.StateRunning)}}
	p := newTestPoller(engine, cache.NewSchemaCache())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.AwaitCompletion(ctx, "exec-1", time.Hour)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not return after context cancellation")
	}
}
