// Package engine implements the optimistic-mutation layer shared by every
// editable collection: staged field patches, a working-view merge, per-row
// commit timers with an undo window, a snapshot cache, and a typed event bus.
package engine

import (
	"context"
	"time"
)

// DefaultGracePeriod is the delay between staging an edit and committing it
// to the backing store. An undo within this window costs no network call.
const DefaultGracePeriod = 2500 * time.Millisecond

// Row is any persisted entity the engine can stage edits against.
type Row interface {
	RowID() string
}

// Fields is a partial row: field name to new value.
type Fields map[string]any

// Backend is the thin client over the backing store for one collection.
// Calls succeed or fail as a whole batch; there is no finer transactionality.
type Backend[R Row] interface {
	UpsertRows(ctx context.Context, rows []R) error
	DeleteRows(ctx context.Context, ids []string) error
	SelectAll(ctx context.Context) ([]R, error)
}
