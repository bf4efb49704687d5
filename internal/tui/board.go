package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/store"
)

// boardModel is the editable dashboard: every keystroke stages a patch
// through the mutation engine and the list immediately shows the merged
// working view. Nothing touches the database until a grace period elapses
// without an undo.
type boardModel struct {
	cols   *collections.Set
	width  int
	height int

	section boardSection
	cursor  int

	todos       []store.Todo
	habits      []store.Habit
	priorities  []store.Priority
	keyResults  []store.KeyResult
	changeCount int
	loadErr     error

	// Most recently staged row, target of the undo key.
	lastStagedCollection string
	lastStagedRow        string

	formActive bool
	form       *huh.Form
	formType   string
	editingID  string

	// Form values as pointers (survive value copies)
	formTitle  *string
	formNotes  *string
	formExtra  *string // rank, schedule, objective depending on section
	formAmount *string // target / current for key results
}

func newBoardModel(cols *collections.Set) boardModel {
	title, notes, extra, amount := "", "", "", ""
	return boardModel{
		cols:       cols,
		formTitle:  &title,
		formNotes:  &notes,
		formExtra:  &extra,
		formAmount: &amount,
	}
}

func (b boardModel) Init() tea.Cmd {
	return b.loadData()
}

func (b *boardModel) setSize(w, h int) {
	b.width = w
	b.height = h
}

func (b boardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var msg boardDataMsg
		var err error
		if msg.todos, _, err = b.cols.Todos.WorkingView(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.habits, _, err = b.cols.Habits.WorkingView(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.priorities, _, err = b.cols.Priorities.WorkingView(ctx); err != nil {
			msg.err = err
			return msg
		}
		if msg.keyResults, _, err = b.cols.KeyResults.WorkingView(ctx); err != nil {
			msg.err = err
			return msg
		}
		msg.changeCount = b.cols.ChangeCount()
		return msg
	}
}

func (b boardModel) sectionLen() int {
	switch b.section {
	case sectionTodos:
		return len(b.todos)
	case sectionHabits:
		return len(b.habits)
	case sectionPriorities:
		return len(b.priorities)
	case sectionKeyResults:
		return len(b.keyResults)
	}
	return 0
}

func (b boardModel) update(msg tea.Msg) (boardModel, tea.Cmd) {
	if b.formActive && b.form != nil {
		return b.updateForm(msg)
	}

	switch msg := msg.(type) {
	case boardDataMsg:
		if msg.err != nil {
			b.loadErr = msg.err
			return b, nil
		}
		b.loadErr = nil
		b.todos = msg.todos
		b.habits = msg.habits
		b.priorities = msg.priorities
		b.keyResults = msg.keyResults
		b.changeCount = msg.changeCount
		if b.cursor >= b.sectionLen() && b.cursor > 0 {
			b.cursor = b.sectionLen() - 1
		}
		return b, nil

	case tea.KeyMsg:
		return b.updateKeys(msg)
	}
	return b, nil
}

func (b boardModel) updateKeys(msg tea.KeyMsg) (boardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if b.cursor > 0 {
			b.cursor--
		}
	case key.Matches(msg, keys.Down):
		if b.cursor < b.sectionLen()-1 {
			b.cursor++
		}
	case key.Matches(msg, keys.Left):
		b.section = (b.section + 3) % 4
		b.cursor = 0
	case key.Matches(msg, keys.Right):
		b.section = (b.section + 1) % 4
		b.cursor = 0
	case key.Matches(msg, keys.Toggle):
		return b.toggleCurrent()
	case key.Matches(msg, keys.Delete):
		return b.removeCurrent()
	case key.Matches(msg, keys.Undo):
		return b.undoLast()
	case key.Matches(msg, keys.New):
		return b.showNewForm()
	case key.Matches(msg, keys.Edit):
		return b.showEditForm()
	case key.Matches(msg, keys.SaveAll):
		return b, b.commitAll()
	case key.Matches(msg, keys.Discard):
		b.cols.Todos.DiscardAll()
		b.cols.Habits.DiscardAll()
		b.cols.Priorities.DiscardAll()
		b.cols.KeyResults.DiscardAll()
		return b, tea.Batch(b.loadData(), statusCmd("All staged changes discarded", false))
	}
	return b, nil
}

// toggleCurrent stages the natural one-key edit for the focused row: done
// flag for todos, streak bump for habits, rank bump for priorities, current
// value bump for key results.
func (b boardModel) toggleCurrent() (boardModel, tea.Cmd) {
	switch b.section {
	case sectionTodos:
		if b.cursor < len(b.todos) {
			t := b.todos[b.cursor]
			b.cols.Todos.Stage(t.ID, engine.Fields{"done": !t.Done})
			b.noteStaged(collections.TodosID, t.ID)
		}
	case sectionHabits:
		if b.cursor < len(b.habits) {
			h := b.habits[b.cursor]
			b.cols.Habits.Stage(h.ID, engine.Fields{"streak": h.Streak + 1})
			b.noteStaged(collections.HabitsID, h.ID)
		}
	case sectionPriorities:
		if b.cursor < len(b.priorities) {
			p := b.priorities[b.cursor]
			b.cols.Priorities.Stage(p.ID, engine.Fields{"rank": p.Rank + 1})
			b.noteStaged(collections.PrioritiesID, p.ID)
		}
	case sectionKeyResults:
		if b.cursor < len(b.keyResults) {
			k := b.keyResults[b.cursor]
			b.cols.KeyResults.Stage(k.ID, engine.Fields{"current": k.Current + 1})
			b.noteStaged(collections.KeyResultsID, k.ID)
		}
	}
	return b, b.loadData()
}

func (b boardModel) removeCurrent() (boardModel, tea.Cmd) {
	switch b.section {
	case sectionTodos:
		if b.cursor < len(b.todos) {
			id := b.todos[b.cursor].ID
			b.cols.Todos.StageRemoval(id)
			b.noteStaged(collections.TodosID, id)
		}
	case sectionHabits:
		if b.cursor < len(b.habits) {
			id := b.habits[b.cursor].ID
			b.cols.Habits.StageRemoval(id)
			b.noteStaged(collections.HabitsID, id)
		}
	case sectionPriorities:
		if b.cursor < len(b.priorities) {
			id := b.priorities[b.cursor].ID
			b.cols.Priorities.StageRemoval(id)
			b.noteStaged(collections.PrioritiesID, id)
		}
	case sectionKeyResults:
		if b.cursor < len(b.keyResults) {
			id := b.keyResults[b.cursor].ID
			b.cols.KeyResults.StageRemoval(id)
			b.noteStaged(collections.KeyResultsID, id)
		}
	}
	return b, b.loadData()
}

func (b *boardModel) noteStaged(collection, rowID string) {
	b.lastStagedCollection = collection
	b.lastStagedRow = rowID
}

func (b boardModel) undoLast() (boardModel, tea.Cmd) {
	if b.lastStagedRow == "" {
		return b, statusCmd("Nothing to undo", false)
	}
	ok := false
	switch b.lastStagedCollection {
	case collections.TodosID:
		ok = b.cols.Todos.Undo(b.lastStagedRow)
	case collections.HabitsID:
		ok = b.cols.Habits.Undo(b.lastStagedRow)
	case collections.PrioritiesID:
		ok = b.cols.Priorities.Undo(b.lastStagedRow)
	case collections.KeyResultsID:
		ok = b.cols.KeyResults.Undo(b.lastStagedRow)
	}
	b.lastStagedRow = ""
	b.lastStagedCollection = ""
	if !ok {
		return b, tea.Batch(b.loadData(), statusCmd("Too late to undo, change already saved", false))
	}
	return b, tea.Batch(b.loadData(), statusCmd("Edit undone", false))
}

func (b boardModel) commitAll() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		for _, commit := range []func(context.Context) error{
			b.cols.Todos.CommitAll,
			b.cols.Habits.CommitAll,
			b.cols.Priorities.CommitAll,
			b.cols.KeyResults.CommitAll,
		} {
			if err := commit(ctx); err != nil {
				return statusMsg{text: fmt.Sprintf("Save failed: %v", err), isError: true}
			}
		}
		return statusMsg{text: "All staged changes saved", isError: false}
	}
}

// --- Forms ---

func (b boardModel) showNewForm() (boardModel, tea.Cmd) {
	*b.formTitle = ""
	*b.formNotes = ""
	*b.formExtra = ""
	*b.formAmount = ""
	b.editingID = ""

	switch b.section {
	case sectionTodos:
		b.formType = "todo"
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Title").Value(b.formTitle),
			huh.NewInput().Title("Notes").Value(b.formNotes),
		))
	case sectionHabits:
		b.formType = "habit"
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Habit").Value(b.formTitle),
			huh.NewSelect[string]().Title("Schedule").
				Options(
					huh.NewOption("Daily", "daily"),
					huh.NewOption("Weekdays", "weekdays"),
					huh.NewOption("Weekly", "weekly"),
				).Value(b.formExtra),
		))
	case sectionPriorities:
		b.formType = "priority"
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Priority").Value(b.formTitle),
			huh.NewInput().Title("Quarter (e.g. 2026-Q3)").Value(b.formExtra),
		))
	case sectionKeyResults:
		b.formType = "keyresult"
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Key Result").Value(b.formTitle),
			huh.NewInput().Title("Objective").Value(b.formExtra),
			huh.NewInput().Title("Target").Value(b.formAmount),
		))
	}
	b.form = b.form.WithShowHelp(true).WithShowErrors(true)
	b.formActive = true
	return b, b.form.Init()
}

func (b boardModel) showEditForm() (boardModel, tea.Cmd) {
	if b.sectionLen() == 0 {
		return b, nil
	}
	switch b.section {
	case sectionTodos:
		t := b.todos[b.cursor]
		*b.formTitle = t.Title
		*b.formNotes = t.Notes
		b.formType = "edit_todo"
		b.editingID = t.ID
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Title").Value(b.formTitle),
			huh.NewInput().Title("Notes").Value(b.formNotes),
		))
	case sectionHabits:
		h := b.habits[b.cursor]
		*b.formTitle = h.Name
		*b.formExtra = h.Schedule
		b.formType = "edit_habit"
		b.editingID = h.ID
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Habit").Value(b.formTitle),
			huh.NewSelect[string]().Title("Schedule").
				Options(
					huh.NewOption("Daily", "daily"),
					huh.NewOption("Weekdays", "weekdays"),
					huh.NewOption("Weekly", "weekly"),
				).Value(b.formExtra),
		))
	case sectionPriorities:
		p := b.priorities[b.cursor]
		*b.formTitle = p.Title
		*b.formExtra = p.Quarter
		b.formType = "edit_priority"
		b.editingID = p.ID
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Priority").Value(b.formTitle),
			huh.NewInput().Title("Quarter").Value(b.formExtra),
		))
	case sectionKeyResults:
		k := b.keyResults[b.cursor]
		*b.formTitle = k.Title
		*b.formExtra = k.Objective
		*b.formAmount = strconv.FormatFloat(k.Target, 'f', -1, 64)
		b.formType = "edit_keyresult"
		b.editingID = k.ID
		b.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Key Result").Value(b.formTitle),
			huh.NewInput().Title("Objective").Value(b.formExtra),
			huh.NewInput().Title("Target").Value(b.formAmount),
		))
	}
	b.form = b.form.WithShowHelp(true).WithShowErrors(true)
	b.formActive = true
	return b, b.form.Init()
}

func (b boardModel) updateForm(msg tea.Msg) (boardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			b.formActive = false
			b.form = nil
			return b, nil
		}
	}

	form, cmd := b.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		b.form = f
	}

	if b.form.State == huh.StateCompleted {
		b.formActive = false
		return b.submitForm()
	}
	return b, cmd
}

func (b boardModel) submitForm() (boardModel, tea.Cmd) {
	if err := engine.ValidateRequired("title", *b.formTitle); err != nil {
		return b, statusCmd(err.Error(), true)
	}

	switch b.formType {
	case "todo":
		id := b.cols.Todos.StageNew(engine.Fields{"title": *b.formTitle, "notes": *b.formNotes})
		b.noteStaged(collections.TodosID, id)
	case "edit_todo":
		b.cols.Todos.Stage(b.editingID, engine.Fields{"title": *b.formTitle, "notes": *b.formNotes})
		b.noteStaged(collections.TodosID, b.editingID)
	case "habit":
		schedule := *b.formExtra
		if schedule == "" {
			schedule = "daily"
		}
		id := b.cols.Habits.StageNew(engine.Fields{"name": *b.formTitle, "schedule": schedule, "active": true})
		b.noteStaged(collections.HabitsID, id)
	case "edit_habit":
		b.cols.Habits.Stage(b.editingID, engine.Fields{"name": *b.formTitle, "schedule": *b.formExtra})
		b.noteStaged(collections.HabitsID, b.editingID)
	case "priority":
		id := b.cols.Priorities.StageNew(engine.Fields{
			"title": *b.formTitle, "quarter": *b.formExtra, "rank": len(b.priorities) + 1,
		})
		b.noteStaged(collections.PrioritiesID, id)
	case "edit_priority":
		b.cols.Priorities.Stage(b.editingID, engine.Fields{"title": *b.formTitle, "quarter": *b.formExtra})
		b.noteStaged(collections.PrioritiesID, b.editingID)
	case "keyresult", "edit_keyresult":
		target, err := strconv.ParseFloat(strings.TrimSpace(*b.formAmount), 64)
		if err != nil {
			return b, statusCmd("Target must be a number", true)
		}
		fields := engine.Fields{"title": *b.formTitle, "objective": *b.formExtra, "target": target}
		if b.formType == "keyresult" {
			id := b.cols.KeyResults.StageNew(fields)
			b.noteStaged(collections.KeyResultsID, id)
		} else {
			b.cols.KeyResults.Stage(b.editingID, fields)
			b.noteStaged(collections.KeyResultsID, b.editingID)
		}
	}
	return b, b.loadData()
}

// --- View ---

func (b boardModel) view() string {
	if b.formActive && b.form != nil {
		return activePanelStyle.Width(b.width - 4).Render(b.form.View())
	}
	if b.loadErr != nil {
		return panelStyle.Width(b.width - 4).Render(
			errorStyle.Render(fmt.Sprintf("Load failed: %v", b.loadErr)) + "\n\n" +
				mutedStyle.Render("Press tab to retry"))
	}

	var tabs []string
	for i, name := range sectionNames {
		if boardSection(i) == b.section {
			tabs = append(tabs, selectedItemStyle.Render(name))
		} else {
			tabs = append(tabs, mutedStyle.Render(name))
		}
	}
	header := strings.Join(tabs, mutedStyle.Render("  ·  "))

	var rows []string
	rows = append(rows, header, "")
	rows = append(rows, b.sectionLines()...)

	if b.changeCount > 0 {
		rows = append(rows, "", warningStyle.Render(
			fmt.Sprintf("%d unsaved change(s) pending", b.changeCount)))
	}

	return panelStyle.Width(b.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (b boardModel) sectionLines() []string {
	var lines []string
	render := func(i int, s string, done bool) {
		style := normalItemStyle
		if done {
			style = doneItemStyle
		}
		cursor := "  "
		if i == b.cursor {
			cursor = highlightStyle.Render("> ")
			if !done {
				style = selectedItemStyle
			}
		}
		lines = append(lines, cursor+style.Render(s))
	}

	switch b.section {
	case sectionTodos:
		for i, t := range b.todos {
			render(i, fmt.Sprintf("%s %s", checkbox(t.Done), t.Title), t.Done)
		}
	case sectionHabits:
		for i, h := range b.habits {
			render(i, fmt.Sprintf("%s  (%s, streak %d)", h.Name, h.Schedule, h.Streak), !h.Active)
		}
	case sectionPriorities:
		for i, p := range b.priorities {
			render(i, fmt.Sprintf("#%d %s  %s", p.Rank, p.Title, subtitleStyle.Render(p.Quarter)), false)
		}
	case sectionKeyResults:
		for i, k := range b.keyResults {
			render(i, fmt.Sprintf("%s  %.0f/%.0f %s", k.Title, k.Current, k.Target, k.Unit), k.Target > 0 && k.Current >= k.Target)
		}
	}
	if len(lines) == 0 {
		lines = append(lines, mutedStyle.Render("  Nothing here yet. Press n to add."))
	}
	return lines
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}
