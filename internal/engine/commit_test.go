package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeBackend is an in-memory Backend recording every call.
type fakeBackend struct {
	mu          sync.Mutex
	rows        map[string]testRow
	selectCalls int
	upsertCalls int
	deleteCalls int
	failUpserts bool
	failDeletes bool
	lastUpsert  []testRow
	lastDelete  []string
}

func newFakeBackend(rows ...testRow) *fakeBackend {
	b := &fakeBackend{rows: map[string]testRow{}}
	for _, r := range rows {
		b.rows[r.ID] = r
	}
	return b
}

func (b *fakeBackend) SelectAll(ctx context.Context) ([]testRow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectCalls++
	var out []testRow
	for _, r := range b.rows {
		out = append(out, r)
	}
	return out, nil
}

func (b *fakeBackend) UpsertRows(ctx context.Context, rows []testRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsertCalls++
	if b.failUpserts {
		return errors.New("backend unavailable")
	}
	b.lastUpsert = rows
	for _, r := range rows {
		b.rows[r.ID] = r
	}
	return nil
}

func (b *fakeBackend) DeleteRows(ctx context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls++
	if b.failDeletes {
		return errors.New("backend unavailable")
	}
	b.lastDelete = ids
	for _, id := range ids {
		delete(b.rows, id)
	}
	return nil
}

func (b *fakeBackend) counts() (selects, upserts, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectCalls, b.upsertCalls, b.deleteCalls
}

func (b *fakeBackend) get(id string) (testRow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rows[id]
	return r, ok
}

const testGrace = 15 * time.Millisecond

func newTestController(t *testing.T, backend *fakeBackend) (*Controller[testRow], chan Event) {
	t.Helper()
	bus := NewBus()
	events := make(chan Event, 64)
	bus.Subscribe(func(e Event) { events <- e })
	c := NewController(ControllerConfig[testRow]{
		Collection: "todos",
		Backend:    backend,
		Apply:      applyTestRow,
		Bus:        bus,
		Grace:      testGrace,
	})
	t.Cleanup(c.Close)
	return c, events
}

func awaitEvent(t *testing.T, events chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

// ============================================================
// Optimistic commit cycle
// ============================================================

func TestStageNewCommitsAfterGrace(t *testing.T) {
	backend := newFakeBackend()
	c, events := newTestController(t, backend)

	id := c.StageNew(Fields{"title": "write tests", "done": false})
	if id == "" {
		t.Fatal("expected a generated row id")
	}

	staged := awaitEvent(t, events, RowStaged)
	if staged.RowID != id || staged.Collection != "todos" {
		t.Fatalf("unexpected staged event: %+v", staged)
	}
	if staged.Deadline == 0 {
		t.Fatal("staged event should carry the commit deadline")
	}

	awaitEvent(t, events, RowCommitted)

	row, ok := backend.get(id)
	if !ok {
		t.Fatal("row never reached the backend")
	}
	if row.Title != "write tests" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if c.ChangeCount() != 0 {
		t.Fatalf("expected 0 staged changes after commit, got %d", c.ChangeCount())
	}
}

func TestUndoInsideGraceSkipsNetwork(t *testing.T) {
	backend := newFakeBackend()
	c, events := newTestController(t, backend)

	id := c.StageNew(Fields{"title": "oops"})
	if !c.Undo(id) {
		t.Fatal("undo inside the grace period should succeed")
	}
	awaitEvent(t, events, RowDiscarded)

	// Wait well past the grace period to be sure nothing fires late.
	time.Sleep(4 * testGrace)
	_, upserts, deletes := backend.counts()
	if upserts != 0 || deletes != 0 {
		t.Fatalf("undo reached the backend: %d upserts, %d deletes", upserts, deletes)
	}
	if c.ChangeCount() != 0 {
		t.Fatal("patch should be gone after undo")
	}
	if c.Undo(id) {
		t.Fatal("second undo should report false")
	}
}

func TestUndoAfterCommitReportsFalse(t *testing.T) {
	backend := newFakeBackend()
	c, events := newTestController(t, backend)

	id := c.StageNew(Fields{"title": "x"})
	awaitEvent(t, events, RowCommitted)

	if c.Undo(id) {
		t.Fatal("undo after the commit fired should report false")
	}
	if _, ok := backend.get(id); !ok {
		t.Fatal("committed row should remain in the backend")
	}
}

func TestRapidEditsCoalesceIntoOneWrite(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "start"})
	c, events := newTestController(t, backend)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.Stage("a", Fields{"title": "v1"})
	c.Stage("a", Fields{"title": "v2"})
	c.Stage("a", Fields{"done": true})

	awaitEvent(t, events, RowCommitted)

	_, upserts, _ := backend.counts()
	if upserts != 1 {
		t.Fatalf("expected one batched write, got %d", upserts)
	}
	row, _ := backend.get("a")
	if row.Title != "v2" || !row.Done {
		t.Fatalf("edits did not merge: %+v", row)
	}
}

func TestCommitFailureRollsBack(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "base"})
	c, events := newTestController(t, backend)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	backend.failUpserts = true

	c.Stage("a", Fields{"title": "doomed"})
	failed := awaitEvent(t, events, CommitFailed)
	if failed.Err == nil {
		t.Fatal("expected error on failed commit event")
	}

	// The patch is gone and the working view shows the base snapshot again.
	rows, count, err := c.WorkingView(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0 staged changes after rollback, got %d", count)
	}
	want := []testRow{{ID: "a", Title: "base"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("working view not reverted:\n%s", diff)
	}
}

func TestStageRemovalDeletes(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a"}, testRow{ID: "b"})
	c, events := newTestController(t, backend)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.StageRemoval("a")
	awaitEvent(t, events, RowCommitted)

	if _, ok := backend.get("a"); ok {
		t.Fatal("row should be deleted")
	}
	if _, ok := backend.get("b"); !ok {
		t.Fatal("unrelated row vanished")
	}
}

func TestRemovalSupersedesStagedEdits(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "x"})
	c, events := newTestController(t, backend)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.Stage("a", Fields{"title": "edited"})
	c.StageRemoval("a")
	awaitEvent(t, events, RowCommitted)

	_, upserts, deletes := backend.counts()
	if upserts != 0 || deletes != 1 {
		t.Fatalf("expected delete only, got %d upserts %d deletes", upserts, deletes)
	}
}

// ============================================================
// Working view and cache behavior
// ============================================================

func TestWorkingViewOverlaysStagedEdits(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "base"})
	c, _ := newTestController(t, backend)

	c.Stage("a", Fields{"title": "staged"})
	rows, count, err := c.WorkingView(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 staged change, got %d", count)
	}
	if len(rows) != 1 || rows[0].Title != "staged" {
		t.Fatalf("overlay missing: %+v", rows)
	}

	// The backend still holds the base value until the commit fires.
	row, _ := backend.get("a")
	if row.Title != "base" {
		t.Fatalf("backend mutated before commit: %+v", row)
	}
}

func TestLoadUsesCacheUntilInvalidated(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a"})
	c, _ := newTestController(t, backend)
	ctx := context.Background()

	c.Load(ctx)
	c.Load(ctx)
	selects, _, _ := backend.counts()
	if selects != 1 {
		t.Fatalf("expected one fetch, got %d", selects)
	}

	c.Refresh(ctx)
	selects, _, _ = backend.counts()
	if selects != 2 {
		t.Fatalf("expected refetch after refresh, got %d selects", selects)
	}
}

func TestCommitInvalidatesCache(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a"})
	c, events := newTestController(t, backend)
	ctx := context.Background()
	c.Load(ctx)

	c.Stage("a", Fields{"title": "new"})
	awaitEvent(t, events, RowCommitted)

	c.Load(ctx)
	selects, _, _ := backend.counts()
	if selects != 2 {
		t.Fatalf("expected fresh fetch after commit, got %d selects", selects)
	}
}

func TestCommitAfterInvalidationKeepsUnpatchedFields(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "keep me"})
	c, events := newTestController(t, backend)
	ctx := context.Background()
	c.Load(ctx)

	// The first commit invalidates the cache, so the second commit must
	// refetch its base instead of applying the patch to a zero row.
	c.Stage("a", Fields{"done": true})
	awaitEvent(t, events, RowCommitted)

	c.Stage("a", Fields{"done": false})
	awaitEvent(t, events, RowCommitted)

	row, _ := backend.get("a")
	if row.Title != "keep me" {
		t.Fatalf("unpatched field clobbered: title=%q (want %q)", row.Title, "keep me")
	}
	if row.Done {
		t.Fatalf("patched field not applied: %+v", row)
	}
}

func TestCommitAllFetchesBaseOnCacheMiss(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "keep me"})
	c, _ := newTestController(t, backend)

	// No Load beforehand; the staged set is committed against a cold cache.
	c.Stage("a", Fields{"done": true})
	if err := c.CommitAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	row, _ := backend.get("a")
	if row.Title != "keep me" || !row.Done {
		t.Fatalf("batch commit lost base fields: %+v", row)
	}
}

// ============================================================
// Bulk operations
// ============================================================

func TestCommitAllBatches(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "one"}, testRow{ID: "b", Title: "two"})
	c, events := newTestController(t, backend)
	ctx := context.Background()
	c.Load(ctx)

	c.Stage("a", Fields{"title": "one edited"})
	c.StageRemoval("b")
	newID := c.StageNew(Fields{"title": "brand new"})

	if err := c.CommitAll(ctx); err != nil {
		t.Fatal(err)
	}
	awaitEvent(t, events, RefreshRequested)

	_, upserts, deletes := backend.counts()
	if upserts != 1 || deletes != 1 {
		t.Fatalf("expected one batched upsert and one delete, got %d/%d", upserts, deletes)
	}
	if row, _ := backend.get("a"); row.Title != "one edited" {
		t.Fatalf("edit not applied: %+v", row)
	}
	if _, ok := backend.get("b"); ok {
		t.Fatal("removal not applied")
	}
	if _, ok := backend.get(newID); !ok {
		t.Fatal("new row not applied")
	}
	if c.ChangeCount() != 0 {
		t.Fatal("staged set should be empty after commit all")
	}

	// Per-row timers were canceled; nothing fires later.
	time.Sleep(4 * testGrace)
	_, upserts, deletes = backend.counts()
	if upserts != 1 || deletes != 1 {
		t.Fatalf("per-row timer fired after bulk commit: %d/%d", upserts, deletes)
	}
}

func TestDiscardAll(t *testing.T) {
	backend := newFakeBackend(testRow{ID: "a", Title: "base"})
	c, events := newTestController(t, backend)
	ctx := context.Background()
	c.Load(ctx)

	c.Stage("a", Fields{"title": "staged"})
	c.StageNew(Fields{"title": "new"})
	c.DiscardAll()
	awaitEvent(t, events, RefreshRequested)

	time.Sleep(4 * testGrace)
	_, upserts, deletes := backend.counts()
	if upserts != 0 || deletes != 0 {
		t.Fatalf("discarded edits hit the backend: %d/%d", upserts, deletes)
	}

	rows, count, err := c.WorkingView(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 || len(rows) != 1 || rows[0].Title != "base" {
		t.Fatalf("view not reverted: count=%d rows=%+v", count, rows)
	}
}

func TestPendingCommit(t *testing.T) {
	backend := newFakeBackend()
	c, events := newTestController(t, backend)

	id := c.StageNew(Fields{"title": "x"})
	if !c.PendingCommit(id) {
		t.Fatal("expected a pending commit right after staging")
	}
	awaitEvent(t, events, RowCommitted)
	if c.PendingCommit(id) {
		t.Fatal("commit fired but still pending")
	}
}
