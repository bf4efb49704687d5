package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// commitTimeout bounds a single backing-store call issued by a fired timer.
const commitTimeout = 10 * time.Second

// ControllerConfig wires a Controller. Collection, Backend and Apply are
// required; Bus and Persister are optional.
type ControllerConfig[R Row] struct {
	Collection string
	Backend    Backend[R]
	Apply      Applier[R]
	Bus        *Bus
	Persister  Persister
	Grace      time.Duration // zero means DefaultGracePeriod
}

// Controller drives the optimistic commit cycle for one collection: edits
// are staged immediately, a per-row timer auto-commits after the grace
// period, and an undo inside the window discards the patch with no network
// call. The timer handle is canceled synchronously before any commit call is
// issued, so undo and commit are mutually exclusive by construction.
type Controller[R Row] struct {
	collection string
	backend    Backend[R]
	apply      Applier[R]
	cache      *Cache[[]R]
	staged     *Staged
	sched      *Scheduler
	bus        *Bus
	grace      time.Duration
}

func NewController[R Row](cfg ControllerConfig[R]) *Controller[R] {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	bus := cfg.Bus
	if bus == nil {
		bus = NewBus()
	}
	return &Controller[R]{
		collection: cfg.Collection,
		backend:    cfg.Backend,
		apply:      cfg.Apply,
		cache:      NewCache[[]R](cfg.Persister),
		staged:     NewStaged(),
		sched:      NewScheduler(),
		bus:        bus,
		grace:      grace,
	}
}

// Collection returns the collection id this controller serves.
func (c *Controller[R]) Collection() string { return c.collection }

// Grace returns the configured grace period.
func (c *Controller[R]) Grace() time.Duration { return c.grace }

// Bus returns the event bus the controller publishes on.
func (c *Controller[R]) Bus() *Bus { return c.bus }

// Warm restores the persisted cache snapshot, if any.
func (c *Controller[R]) Warm() ([]R, bool) {
	return c.cache.Warm(c.collection)
}

// Load returns the base snapshot, fetching from the backing store only when
// the cache has no entry.
func (c *Controller[R]) Load(ctx context.Context) ([]R, error) {
	if rows, ok := c.cache.Get(c.collection); ok {
		return rows, nil
	}
	rows, err := c.backend.SelectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.collection, err)
	}
	c.cache.Set(c.collection, rows)
	return rows, nil
}

// Refresh drops the cached snapshot and refetches.
func (c *Controller[R]) Refresh(ctx context.Context) ([]R, error) {
	c.cache.Invalidate(c.collection)
	return c.Load(ctx)
}

// WorkingView returns the rows the user currently sees (base snapshot with
// all staged patches overlaid) and the current change count.
func (c *Controller[R]) WorkingView(ctx context.Context) ([]R, int, error) {
	base, err := c.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	patches, count := c.staged.Snapshot()
	return MergeView(base, patches, c.apply), count, nil
}

// StageNew stages a brand-new row and returns its generated id. The row
// counts as exactly one change regardless of how many fields are populated.
func (c *Controller[R]) StageNew(fields Fields) string {
	id := uuid.NewString()
	c.staged.StageEdit(id, fields, true)
	c.scheduleCommit(id)
	return id
}

// Stage merges fields into the patch for an existing row and (re)starts its
// commit timer. Further edits within the grace period coalesce into one
// write.
func (c *Controller[R]) Stage(rowID string, fields Fields) {
	c.staged.StageEdit(rowID, fields, false)
	c.scheduleCommit(rowID)
}

// StageRemoval marks a row for deletion, superseding any staged field edits.
func (c *Controller[R]) StageRemoval(rowID string) {
	c.staged.StageRemoval(rowID)
	c.scheduleCommit(rowID)
}

// Undo cancels the pending commit for rowID and discards its patch without
// contacting the backing store. Reports false when nothing was pending (the
// commit already fired or was never staged).
func (c *Controller[R]) Undo(rowID string) bool {
	if !c.sched.Cancel(rowID) {
		return false
	}
	c.staged.Unstage(rowID)
	c.bus.Publish(Event{Kind: RowDiscarded, Collection: c.collection, RowID: rowID})
	return true
}

// PendingCommit reports whether rowID has a commit timer counting down.
func (c *Controller[R]) PendingCommit(rowID string) bool {
	return c.sched.Pending(rowID)
}

// ChangeCount returns the staged change count for this collection.
func (c *Controller[R]) ChangeCount() int {
	return c.staged.ChangeCount()
}

// Patches returns copies of the staged patches plus the change count.
func (c *Controller[R]) Patches() ([]*Patch, int) {
	return c.staged.Snapshot()
}

func (c *Controller[R]) scheduleCommit(rowID string) {
	deadline := time.Now().Add(c.grace)
	c.sched.Schedule(rowID, c.grace, func() { c.commitRow(rowID) })
	c.bus.Publish(Event{
		Kind:       RowStaged,
		Collection: c.collection,
		RowID:      rowID,
		Deadline:   deadline.UnixMilli(),
	})
}

// commitRow runs on the scheduler goroutine after the grace period elapses
// uncanceled. The patch is taken out of the staged store first, so a failed
// commit still leaves the store clean and the working view reverted to the
// last known-good snapshot.
func (c *Controller[R]) commitRow(rowID string) {
	p := c.staged.Take(rowID)
	if p == nil {
		return
	}
	if !p.counts() {
		// Touched but nothing to write.
		c.bus.Publish(Event{Kind: RowDiscarded, Collection: c.collection, RowID: rowID})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	var err error
	if p.IsRemoved {
		err = c.backend.DeleteRows(ctx, []string{rowID})
	} else {
		// The cache may have been invalidated since this row was staged.
		// The base must come from a real snapshot, or every unpatched
		// field of an existing row would be written back as a zero value.
		rows, lerr := c.Load(ctx)
		if lerr != nil {
			err = lerr
		} else {
			var base R
			for _, r := range rows {
				if r.RowID() == rowID {
					base = r
					break
				}
			}
			err = c.backend.UpsertRows(ctx, []R{c.apply(base, rowID, p.Fields)})
		}
	}

	if err != nil {
		c.bus.Publish(Event{Kind: CommitFailed, Collection: c.collection, RowID: rowID, Err: err})
		return
	}
	c.cache.Invalidate(c.collection)
	c.bus.Publish(Event{Kind: RowCommitted, Collection: c.collection, RowID: rowID})
}

// CommitAll cancels every per-row timer and commits the whole staged set as
// one batched upsert plus one batched delete. Used for table-wide saves.
func (c *Controller[R]) CommitAll(ctx context.Context) error {
	c.sched.CancelAll()
	patches, _ := c.staged.Snapshot()
	c.staged.Clear()

	var upserts []R
	var deletes []string
	var base []R
	for _, p := range patches {
		if !p.IsRemoved && p.counts() {
			rows, err := c.Load(ctx)
			if err != nil {
				c.bus.Publish(Event{Kind: CommitFailed, Collection: c.collection, Err: err})
				return fmt.Errorf("commit %s: %w", c.collection, err)
			}
			base = rows
			break
		}
	}
	for _, p := range patches {
		switch {
		case p.IsRemoved:
			deletes = append(deletes, p.TargetID)
		case p.counts():
			var row R
			for _, r := range base {
				if r.RowID() == p.TargetID {
					row = r
					break
				}
			}
			upserts = append(upserts, c.apply(row, p.TargetID, p.Fields))
		}
	}

	if len(upserts) > 0 {
		if err := c.backend.UpsertRows(ctx, upserts); err != nil {
			c.bus.Publish(Event{Kind: CommitFailed, Collection: c.collection, Err: err})
			return fmt.Errorf("commit %s: %w", c.collection, err)
		}
	}
	if len(deletes) > 0 {
		if err := c.backend.DeleteRows(ctx, deletes); err != nil {
			c.bus.Publish(Event{Kind: CommitFailed, Collection: c.collection, Err: err})
			return fmt.Errorf("commit %s deletions: %w", c.collection, err)
		}
	}

	c.cache.Invalidate(c.collection)
	c.bus.Publish(Event{Kind: RefreshRequested, Collection: c.collection})
	return nil
}

// DiscardAll cancels every timer and throws the staged set away. The next
// load paints the base snapshot, dropping any optimistic state.
func (c *Controller[R]) DiscardAll() {
	c.sched.CancelAll()
	c.staged.Clear()
	c.bus.Publish(Event{Kind: RefreshRequested, Collection: c.collection})
}

// Close stops the scheduler; pending, uncommitted edits are lost, which is
// acceptable for this application.
func (c *Controller[R]) Close() {
	c.sched.Stop()
}
