// Package ledger derives redeemable-allotment state from an append-only log
// of redemption events, using cadence-based quota windows.
package ledger

import (
	"fmt"
	"time"
)

// Cadence is the recurrence period governing how often a quota resets.
type Cadence string

const (
	Weekly    Cadence = "weekly"
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Yearly    Cadence = "yearly"
)

// ParseCadence validates a stored cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case Weekly, Monthly, Quarterly, Yearly:
		return Cadence(s), nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// WindowStart returns the start of the quota window containing now.
// Weekly windows are ISO weeks (Monday 00:00). Quarterly shares the monthly
// bucket: it consumes quota per calendar month, matching the shipped rules
// rather than a true three-month window.
func WindowStart(c Cadence, now time.Time) time.Time {
	return WindowStartOn(c, now, time.Monday)
}

// WindowStartOn is WindowStart with a configurable first day of the week.
// weekStart only affects the weekly cadence.
func WindowStartOn(c Cadence, now time.Time, weekStart time.Weekday) time.Time {
	switch c {
	case Weekly:
		back := (int(now.Weekday()) - int(weekStart) + 7) % 7
		d := now.AddDate(0, 0, -back)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
	case Monthly, Quarterly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case Yearly:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return now
}

// NextBoundary returns the first instant after now at which the window for c
// resets.
func NextBoundary(c Cadence, now time.Time) time.Time {
	return NextBoundaryOn(c, now, time.Monday)
}

// NextBoundaryOn is NextBoundary with a configurable first day of the week.
func NextBoundaryOn(c Cadence, now time.Time, weekStart time.Weekday) time.Time {
	start := WindowStartOn(c, now, weekStart)
	switch c {
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Monthly, Quarterly:
		return start.AddDate(0, 1, 0)
	case Yearly:
		return start.AddDate(1, 0, 0)
	}
	return now
}

// InWindow reports whether t falls inside the current window for c.
func InWindow(c Cadence, t, now time.Time) bool {
	return InWindowOn(c, t, now, time.Monday)
}

// InWindowOn is InWindow with a configurable first day of the week.
func InWindowOn(c Cadence, t, now time.Time, weekStart time.Weekday) bool {
	start := WindowStartOn(c, now, weekStart)
	end := NextBoundaryOn(c, now, weekStart)
	return !t.Before(start) && t.Before(end)
}

// DaysUntil returns the number of whole days from now until t, rounding any
// partial day up. A boundary later today is 1 day away once now has passed
// midnight of the same day; a boundary at or before now is 0.
func DaysUntil(t, now time.Time) int {
	if !t.After(now) {
		return 0
	}
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
