// Package cache provides execution-scoped schema caching and hand-off.
package cache

import (
	"context"
	"sync"

	"github.com/skiffdb/skiff/pkg/models"
)

// SchemaFuture is an explicit promise for a result schema. The poller
// creates one on successful completion and warms it in the background;
// the retriever joins it before materializing rows. Completion is
// one-shot: later Complete calls are ignored.
type SchemaFuture struct {
	once   sync.Once
	done   chan struct{}
	schema models.Schema
	err    error
}

// NewSchemaFuture creates an unresolved schema future.
func NewSchemaFuture() *SchemaFuture {
	return &SchemaFuture{done: make(chan struct{})}
}

// ResolvedSchemaFuture creates a future already completed with the given
// schema. Used when the schema is known up front (e.g. page metadata).
func ResolvedSchemaFuture(schema models.Schema) *SchemaFuture {
	f := NewSchemaFuture()
	f.Complete(schema, nil)
	return f
}

// Complete resolves the future with a schema or an error.
func (f *SchemaFuture) Complete(schema models.Schema, err error) {
	f.once.Do(func() {
		f.schema = schema
		f.err = err
		close(f.done)
	})
}

// Join blocks until the future resolves or the context is done.
func (f *SchemaFuture) Join(ctx context.Context) (models.Schema, error) {
	select {
	case <-f.done:
		return f.schema, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved reports whether the future has completed, without blocking.
func (f *SchemaFuture) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// SchemaCache stores one read-only schema per execution handle. A schema,
// once stored for an execution, must not be re-fetched for that execution.
type SchemaCache struct {
	mu      sync.RWMutex
	entries map[string]models.Schema
}

// NewSchemaCache creates an empty schema cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{entries: make(map[string]models.Schema)}
}

// Get returns the cached schema for an execution, if present.
func (c *SchemaCache) Get(handle string) (models.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schema, ok := c.entries[handle]
	return schema, ok
}

// Put stores the schema for an execution. The first write wins; the
// schema is read-only for the rest of the execution's lifetime.
func (c *SchemaCache) Put(handle string, schema models.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[handle]; ok {
		return
	}
	c.entries[handle] = schema
}

// Delete drops the cached schema for an execution.
func (c *SchemaCache) Delete(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, handle)
}
