package tui

import (
	"fmt"
	"time"

	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/ledger"
	"github.com/mvrcel/stride/internal/store"
)

// viewState represents the currently active tab.
type viewState int

const (
	viewBoard viewState = iota
	viewRewards
	viewReports
	viewSettings
)

var viewNames = []string{"Board", "Rewards", "Reports", "Settings"}

// boardSection selects which collection the board cursor operates on.
type boardSection int

const (
	sectionTodos boardSection = iota
	sectionHabits
	sectionPriorities
	sectionKeyResults
)

var sectionNames = []string{"To-dos", "Habits", "Priorities", "Key Results"}

// --- Messages ---

type boardDataMsg struct {
	todos       []store.Todo
	habits      []store.Habit
	priorities  []store.Priority
	keyResults  []store.KeyResult
	changeCount int
	err         error
}

type rewardsDataMsg struct {
	led         *ledger.Ledger
	view        ledger.View
	allotments  []store.Allotment
	redemptions []ledger.Redemption
	horizon     int
	err         error
}

type reportsDataMsg struct {
	weekLabels []string
	weekCounts []float64
	doneTodos  int
	openTodos  int
}

type settingsDataMsg struct {
	settings []store.Setting
}

// engineEventMsg carries a bus event into the update loop.
type engineEventMsg struct {
	event engine.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatCountdown(deadline time.Time) string {
	left := time.Until(deadline)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%.1fs", left.Seconds())
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
