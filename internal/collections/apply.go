package collections

import (
	"time"

	"github.com/mvrcel/stride/internal/engine"
	"github.com/mvrcel/stride/internal/store"
)

func fieldStr(f engine.Fields, key string, prev string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return prev
}

func fieldBool(f engine.Fields, key string, prev bool) bool {
	if v, ok := f[key].(bool); ok {
		return v
	}
	return prev
}

func fieldInt(f engine.Fields, key string, prev int) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// json round-trips land here
		return int(v)
	}
	return prev
}

func fieldFloat(f engine.Fields, key string, prev float64) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return prev
}

// ApplyTodo overlays a staged patch onto a todo. base is the zero value for
// new rows; the applier never mutates its argument.
func ApplyTodo(base store.Todo, id string, f engine.Fields) store.Todo {
	t := base
	t.ID = id
	t.Title = fieldStr(f, "title", t.Title)
	t.Notes = fieldStr(f, "notes", t.Notes)
	t.Done = fieldBool(f, "done", t.Done)
	t.SortOrder = fieldInt(f, "sort_order", t.SortOrder)
	if v, ok := f["due_date"].(*time.Time); ok {
		t.DueDate = v
	}
	return t
}

func ApplyHabit(base store.Habit, id string, f engine.Fields) store.Habit {
	h := base
	h.ID = id
	h.Name = fieldStr(f, "name", h.Name)
	h.Schedule = fieldStr(f, "schedule", h.Schedule)
	h.Streak = fieldInt(f, "streak", h.Streak)
	h.Active = fieldBool(f, "active", h.Active)
	return h
}

func ApplyPriority(base store.Priority, id string, f engine.Fields) store.Priority {
	p := base
	p.ID = id
	p.Title = fieldStr(f, "title", p.Title)
	p.Rank = fieldInt(f, "rank", p.Rank)
	p.Quarter = fieldStr(f, "quarter", p.Quarter)
	return p
}

func ApplyKeyResult(base store.KeyResult, id string, f engine.Fields) store.KeyResult {
	k := base
	k.ID = id
	k.Objective = fieldStr(f, "objective", k.Objective)
	k.Title = fieldStr(f, "title", k.Title)
	k.Target = fieldFloat(f, "target", k.Target)
	k.Current = fieldFloat(f, "current", k.Current)
	k.Unit = fieldStr(f, "unit", k.Unit)
	return k
}

func ApplyAllotment(base store.Allotment, id string, f engine.Fields) store.Allotment {
	a := base
	a.ID = id
	a.ItemType = fieldStr(f, "item_type", a.ItemType)
	a.Quota = fieldInt(f, "quota", a.Quota)
	a.Cadence = fieldStr(f, "cadence", a.Cadence)
	a.Multiplier = fieldInt(f, "multiplier", a.Multiplier)
	return a
}
