// Package collections wires one mutation-engine controller per editable
// collection. The appliers here are the only place that knows which staged
// field names map onto which row fields.
package collections

import (
	"time"

	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/store"
)

// Collection ids. Also the cache keys under which snapshots persist.
const (
	TodosID      = "todos"
	HabitsID     = "habits"
	PrioritiesID = "priorities"
	KeyResultsID = "keyresults"
	AllotmentsID = "allotments"
)

// Set bundles the controllers for every staged collection, sharing one bus
// and one grace period.
type Set struct {
	Todos      *engine.Controller[store.Todo]
	Habits     *engine.Controller[store.Habit]
	Priorities *engine.Controller[store.Priority]
	KeyResults *engine.Controller[store.KeyResult]
	Allotments *engine.Controller[store.Allotment]
}

func NewSet(s *store.Store, bus *engine.Bus, grace time.Duration) *Set {
	return &Set{
		Todos:      Todos(s, bus, grace),
		Habits:     Habits(s, bus, grace),
		Priorities: Priorities(s, bus, grace),
		KeyResults: KeyResults(s, bus, grace),
		Allotments: Allotments(s, bus, grace),
	}
}

// Close stops every controller's scheduler.
func (c *Set) Close() {
	c.Todos.Close()
	c.Habits.Close()
	c.Priorities.Close()
	c.KeyResults.Close()
	c.Allotments.Close()
}

// ChangeCount sums staged changes across all collections.
func (c *Set) ChangeCount() int {
	return c.Todos.ChangeCount() +
		c.Habits.ChangeCount() +
		c.Priorities.ChangeCount() +
		c.KeyResults.ChangeCount() +
		c.Allotments.ChangeCount()
}

func Todos(s *store.Store, bus *engine.Bus, grace time.Duration) *engine.Controller[store.Todo] {
	return engine.NewController(engine.ControllerConfig[store.Todo]{
		Collection: TodosID,
		Backend:    s.Todos(),
		Apply:      ApplyTodo,
		Bus:        bus,
		Persister:  s,
		Grace:      grace,
	})
}

func Habits(s *store.Store, bus *engine.Bus, grace time.Duration) *engine.Controller[store.Habit] {
	return engine.NewController(engine.ControllerConfig[store.Habit]{
		Collection: HabitsID,
		Backend:    s.Habits(),
		Apply:      ApplyHabit,
		Bus:        bus,
		Persister:  s,
		Grace:      grace,
	})
}

func Priorities(s *store.Store, bus *engine.Bus, grace time.Duration) *engine.Controller[store.Priority] {
	return engine.NewController(engine.ControllerConfig[store.Priority]{
		Collection: PrioritiesID,
		Backend:    s.Priorities(),
		Apply:      ApplyPriority,
		Bus:        bus,
		Persister:  s,
		Grace:      grace,
	})
}

func KeyResults(s *store.Store, bus *engine.Bus, grace time.Duration) *engine.Controller[store.KeyResult] {
	return engine.NewController(engine.ControllerConfig[store.KeyResult]{
		Collection: KeyResultsID,
		Backend:    s.KeyResults(),
		Apply:      ApplyKeyResult,
		Bus:        bus,
		Persister:  s,
		Grace:      grace,
	})
}

func Allotments(s *store.Store, bus *engine.Bus, grace time.Duration) *engine.Controller[store.Allotment] {
	return engine.NewController(engine.ControllerConfig[store.Allotment]{
		Collection: AllotmentsID,
		Backend:    s.Allotments(),
		Apply:      ApplyAllotment,
		Bus:        bus,
		Persister:  s,
		Grace:      grace,
	})
}
