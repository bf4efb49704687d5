package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mvrcel/stride/internal/collections"
	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/export"
	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

// undoToast is the transient affordance shown while a staged edit counts
// down to its commit. It auto-dismisses at the instant the grace period
// elapses.
type undoToast struct {
	collection string
	rowID      string
	deadline   time.Time
}

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	cols   *collections.Set
	bus    *engine.Bus
	events chan engine.Event
	unsub  func()

	width  int
	height int

	activeView viewState
	showHelp   bool

	board    boardModel
	rewards  rewardsModel
	reports  reportsModel
	settings settingsModel

	help    help.Model
	status  string
	isError bool
	toast   *undoToast
}

func NewApp(s *store.Store, cols *collections.Set, bus *engine.Bus) *App {
	h := help.New()
	h.ShowAll = false

	a := &App{
		store:      s,
		cols:       cols,
		bus:        bus,
		events:     make(chan engine.Event, 64),
		activeView: viewBoard,
		board:      newBoardModel(cols),
		rewards:    newRewardsModel(s, cols),
		reports:    newReportsModel(s, cols),
		settings:   newSettingsModel(s),
		help:       h,
	}
	a.unsub = bus.Subscribe(func(e engine.Event) {
		select {
		case a.events <- e:
		default:
			// A stalled UI drops events rather than blocking a commit.
		}
	})
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.board.Init(),
		a.rewards.refresh(),
		tickCmd(),
		a.waitForEvent(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg{event: <-a.events}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.board.setSize(a.width, contentHeight)
		a.rewards.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			a.unsub()
			a.cols.Close()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Export):
			return a, a.doExport()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewBoard
			return a, a.board.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewRewards
			return a, a.rewards.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 4
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		if a.toast != nil && time.Now().After(a.toast.deadline) {
			a.toast = nil
		}
		return a, tickCmd()

	case engineEventMsg:
		return a.handleEngineEvent(msg.event)

	case statusMsg:
		a.status = msg.text
		a.isError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isError = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

// handleEngineEvent reacts to the bus: staged rows raise the undo toast,
// landed or failed commits refresh whichever view is showing.
func (a App) handleEngineEvent(e engine.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{a.waitForEvent()}

	switch e.Kind {
	case engine.RowStaged:
		a.toast = &undoToast{
			collection: e.Collection,
			rowID:      e.RowID,
			deadline:   time.UnixMilli(e.Deadline),
		}
	case engine.RowCommitted:
		if a.toast != nil && a.toast.rowID == e.RowID {
			a.toast = nil
		}
		a.status = "Saved"
		a.isError = false
		cmds = append(cmds, a.refreshCurrentView())
	case engine.CommitFailed:
		if a.toast != nil && a.toast.rowID == e.RowID {
			a.toast = nil
		}
		a.status = fmt.Sprintf("Save failed, change rolled back: %v", e.Err)
		a.isError = true
		cmds = append(cmds, a.refreshCurrentView())
	case engine.RowDiscarded:
		if a.toast != nil && a.toast.rowID == e.RowID {
			a.toast = nil
		}
	case engine.RefreshRequested:
		cmds = append(cmds, a.refreshCurrentView())
	}
	return a, tea.Batch(cmds...)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewBoard:
		a.board, cmd = a.board.update(msg)
	case viewRewards:
		a.rewards, cmd = a.rewards.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewBoard:
		return a.board.formActive
	case viewRewards:
		return a.rewards.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewBoard:
		return a.board.loadData()
	case viewRewards:
		return a.rewards.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewBoard:
		content = a.board.view()
	case viewRewards:
		content = a.rewards.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("stride")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.isError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// The undo toast wins the right-hand slot while counting down.
	if a.toast != nil {
		status = toastStyle.Render(fmt.Sprintf(" saving %s in %s, press u to undo",
			a.toast.collection, formatCountdown(a.toast.deadline)))
	}

	left := footerStyle.Render(helpView)
	right := status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) doExport() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		todos, _, err := a.cols.Todos.WorkingView(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		redemptions, err := a.store.ListRedemptions(ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		overages, _ := a.store.ListOverages(ctx)

		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")
		path := filepath.Join(home, fmt.Sprintf("stride-export-%s.json", dateStr))
		if err := export.ToJSON(todos, redemptions, overages, path); err != nil {
			return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
		}

		csvPath := filepath.Join(home, fmt.Sprintf("stride-redemptions-%s.csv", dateStr))
		var view ledger.View
		if a.rewards.led != nil {
			view = a.rewards.led.View(a.rewards.horizon)
		}
		if err := export.RedemptionsToCSV(redemptions, view, csvPath); err != nil {
			return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
		}

		return exportDoneMsg{path: path}
	}
}
