package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	s := newTestStore(t)
	bus := engine.NewBus()
	cols := collections.NewSet(s, bus, time.Minute)
	t.Cleanup(cols.Close)
	return NewApp(s, cols, bus)
}

// ============================================================
// Board model
// ============================================================

func TestBoardDataMsgPopulatesSections(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(boardDataMsg{
		todos:       []store.Todo{{ID: "t1", Title: "a"}, {ID: "t2", Title: "b"}},
		habits:      []store.Habit{{ID: "h1", Name: "stretch"}},
		changeCount: 2,
	})

	if len(b.todos) != 2 || len(b.habits) != 1 || b.changeCount != 2 {
		t.Fatalf("data not applied: %+v", b)
	}
	if b.sectionLen() != 2 {
		t.Fatalf("todos section length = %d", b.sectionLen())
	}
}

func TestBoardCursorClampedOnReload(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(boardDataMsg{todos: []store.Todo{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}})
	b.cursor = 2

	// A row vanished; the cursor falls back to the last row.
	b, _ = b.update(boardDataMsg{todos: []store.Todo{{ID: "t1"}}})
	if b.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", b.cursor)
	}
}

func TestBoardToggleStagesDoneFlag(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(boardDataMsg{todos: []store.Todo{{ID: "t1", Title: "a"}}})

	b, _ = b.toggleCurrent()
	if cols.Todos.ChangeCount() != 1 {
		t.Fatalf("toggle did not stage a change: %d", cols.Todos.ChangeCount())
	}
	if !cols.Todos.PendingCommit("t1") {
		t.Fatal("no commit timer after toggle")
	}
	if b.lastStagedRow != "t1" {
		t.Fatalf("undo target = %q", b.lastStagedRow)
	}
}

func TestBoardUndoLast(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(boardDataMsg{todos: []store.Todo{{ID: "t1"}}})
	b, _ = b.toggleCurrent()

	b, _ = b.undoLast()
	if cols.Todos.ChangeCount() != 0 {
		t.Fatal("undo left a staged change behind")
	}
	if b.lastStagedRow != "" {
		t.Fatal("undo target should be cleared")
	}

	// A second undo has nothing to act on.
	b, _ = b.undoLast()
	if cols.Todos.ChangeCount() != 0 {
		t.Fatal("second undo changed state")
	}
}

func TestBoardRemoveStagesDeletion(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(boardDataMsg{todos: []store.Todo{{ID: "t1"}}})
	b, _ = b.removeCurrent()

	patches, count := cols.Todos.Patches()
	if count != 1 || len(patches) != 1 || !patches[0].IsRemoved {
		t.Fatalf("removal not staged: %+v", patches)
	}
}

func TestBoardSectionNavigationWraps(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	b := newBoardModel(cols)
	b, _ = b.update(tea.KeyMsg{Type: tea.KeyRight})
	if b.section != sectionHabits {
		t.Fatalf("section = %d, want habits", b.section)
	}
	b, _ = b.update(tea.KeyMsg{Type: tea.KeyLeft})
	b, _ = b.update(tea.KeyMsg{Type: tea.KeyLeft})
	if b.section != sectionKeyResults {
		t.Fatalf("section = %d, want key results (wrap)", b.section)
	}
}

// ============================================================
// Rewards model
// ============================================================

func TestRewardsFlattenedAndSelected(t *testing.T) {
	s := newTestStore(t)
	cols := collections.NewSet(s, engine.NewBus(), time.Minute)
	t.Cleanup(cols.Close)

	r := newRewardsModel(s, cols)
	r.ledgerView = ledger.View{
		Available: []ledger.ItemStatus{
			{Item: ledger.Item{Type: "coffee"}, Remaining: 1},
		},
		Unavailable: []ledger.ItemStatus{
			{Item: ledger.Item{Type: "movie"}},
		},
	}

	flat := r.flattened()
	if len(flat) != 2 || flat[0].Type != "coffee" || flat[1].Type != "movie" {
		t.Fatalf("unexpected flattened list: %+v", flat)
	}

	r.cursor = 1
	st, ok := r.selected()
	if !ok || st.Type != "movie" {
		t.Fatalf("selected = %+v ok=%v", st, ok)
	}

	r.cursor = 5
	if _, ok := r.selected(); ok {
		t.Fatal("out-of-range cursor should report no selection")
	}
}

// ============================================================
// Helper functions
// ============================================================

func TestFormatCountdown(t *testing.T) {
	got := formatCountdown(time.Now().Add(2 * time.Second))
	if !strings.HasSuffix(got, "s") {
		t.Fatalf("unexpected format: %q", got)
	}
	if formatCountdown(time.Now().Add(-time.Second)) != "0.0s" {
		t.Fatal("past deadline should clamp to 0.0s")
	}
}

func TestCheckbox(t *testing.T) {
	if checkbox(true) != "[x]" || checkbox(false) != "[ ]" {
		t.Fatal("unexpected checkbox rendering")
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	if len(viewNames) != 4 {
		t.Fatalf("expected 4 view names, got %d", len(viewNames))
	}
	expected := []string{"Board", "Rewards", "Reports", "Settings"}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestViewStateConstants(t *testing.T) {
	if viewBoard != 0 || viewRewards != 1 || viewReports != 2 || viewSettings != 3 {
		t.Fatal("view state constants out of order")
	}
}

// ============================================================
// App model
// ============================================================

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.activeView != viewBoard {
		t.Fatal("default view should be the board")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.toast != nil {
		t.Fatal("no undo toast initially")
	}
}

func TestAppIsFormActiveDefault(t *testing.T) {
	app := newTestApp(t)
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppLoadingState(t *testing.T) {
	app := newTestApp(t)
	if app.View() != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", app.View())
	}
}

func TestAppViewStates(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	for _, v := range []viewState{viewBoard, viewRewards, viewReports, viewSettings} {
		app.activeView = v
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppStatusInFooter(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40
	app.status = "saved ok"

	if !strings.Contains(app.renderFooter(), "saved ok") {
		t.Fatal("footer should contain the status message")
	}
}

func TestAppToastInFooter(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40
	app.toast = &undoToast{
		collection: "todos",
		rowID:      "t1",
		deadline:   time.Now().Add(2 * time.Second),
	}

	footer := app.renderFooter()
	if !strings.Contains(footer, "undo") {
		t.Fatal("footer should offer undo while a commit is pending")
	}
}

func TestAppEngineEventsDriveToast(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	deadline := time.Now().Add(2 * time.Second)
	m, _ := app.handleEngineEvent(engine.Event{
		Kind: engine.RowStaged, Collection: "todos", RowID: "t1",
		Deadline: deadline.UnixMilli(),
	})
	a := m.(App)
	if a.toast == nil || a.toast.rowID != "t1" {
		t.Fatalf("staged event did not raise the toast: %+v", a.toast)
	}

	m, _ = a.handleEngineEvent(engine.Event{Kind: engine.RowCommitted, Collection: "todos", RowID: "t1"})
	a = m.(App)
	if a.toast != nil {
		t.Fatal("commit should dismiss the toast")
	}
}

func TestAppDiscardedEventClearsMatchingToastOnly(t *testing.T) {
	app := newTestApp(t)
	app.toast = &undoToast{collection: "todos", rowID: "t1", deadline: time.Now().Add(time.Second)}

	m, _ := app.handleEngineEvent(engine.Event{Kind: engine.RowDiscarded, Collection: "todos", RowID: "other"})
	a := m.(App)
	if a.toast == nil {
		t.Fatal("toast for a different row should survive")
	}

	m, _ = a.handleEngineEvent(engine.Event{Kind: engine.RowDiscarded, Collection: "todos", RowID: "t1"})
	a = m.(App)
	if a.toast != nil {
		t.Fatal("toast should clear when its row is discarded")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"toast", func() string { return toastStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
		{"doneItem", func() string { return doneItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
