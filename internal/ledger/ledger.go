package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQuotaExceeded means redeem was called with nothing remaining in the
	// current window. Local decision, no network involved; callers route the
	// attempt to AdmitDefeat instead.
	ErrQuotaExceeded = errors.New("quota exhausted for the current window")
	// ErrUnknownItem means no allotment item with that type exists.
	ErrUnknownItem = errors.New("unknown allotment item")
)

// Item defines how many redemptions (Quota × Multiplier) are permitted per
// cadence window.
type Item struct {
	Type       string
	Quota      int
	Cadence    Cadence
	Multiplier int
}

// Allowance is the redemption budget per window.
func (i Item) Allowance() int { return i.Quota * i.Multiplier }

// Validate rejects malformed items before they reach the ledger.
func (i Item) Validate() error {
	if i.Type == "" {
		return fmt.Errorf("item type is required")
	}
	if i.Quota < 0 {
		return fmt.Errorf("quota must not be negative")
	}
	if i.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1")
	}
	if _, err := ParseCadence(string(i.Cadence)); err != nil {
		return err
	}
	return nil
}

// Redemption is an append-only log entry created by a redeem action.
type Redemption struct {
	ID       string
	ItemType string
	At       time.Time
	Quantity int
}

// Overage records an "admit defeat": the item was consumed despite an
// exhausted quota. Informational only; it never decrements remaining.
type Overage struct {
	ID       string
	ItemType string
	At       time.Time
}

// ItemStatus is one item's derived state within the current window.
type ItemStatus struct {
	Item
	Remaining      int
	LastRedeemed   *time.Time
	CountThisYear  int
	DaysUntil      int // days until the next window boundary
	QuotaAvailable int // allowance restored at that boundary
}

// View classifies every item for display. Unavailable always carries the
// exhausted items; ComingUp additionally lists those whose next boundary
// falls within the look-ahead horizon.
type View struct {
	Available   []ItemStatus
	Unavailable []ItemStatus
	ComingUp    []ItemStatus
}

// Ledger computes quota state from allotment items plus the redemption log.
// Read-mostly: the derived view is recomputed whenever either input changes.
type Ledger struct {
	mu          sync.Mutex
	items       []Item
	redemptions []Redemption
	overages    []Overage
	now         func() time.Time
	weekStart   time.Weekday
}

func New(items []Item, redemptions []Redemption, overages []Overage) *Ledger {
	return &Ledger{
		items:       items,
		redemptions: redemptions,
		overages:    overages,
		now:         time.Now,
		weekStart:   time.Monday,
	}
}

// SetNow overrides the clock. Tests only.
func (l *Ledger) SetNow(fn func() time.Time) { l.now = fn }

// SetWeekStart changes the first day of the weekly quota window. The
// default is Monday (ISO weeks).
func (l *Ledger) SetWeekStart(d time.Weekday) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.weekStart = d
}

// SetItems replaces the allotment configuration, e.g. after a staged
// allotment edit lands.
func (l *Ledger) SetItems(items []Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

// Redemptions returns a copy of the redemption log.
func (l *Ledger) Redemptions() []Redemption {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Redemption, len(l.redemptions))
	copy(out, l.redemptions)
	return out
}

// Overages returns a copy of the overage log.
func (l *Ledger) Overages() []Overage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Overage, len(l.overages))
	copy(out, l.overages)
	return out
}

func (l *Ledger) item(itemType string) (Item, bool) {
	for _, it := range l.items {
		if it.Type == itemType {
			return it, true
		}
	}
	return Item{}, false
}

// remaining must be called with the mutex held.
func (l *Ledger) remaining(it Item, now time.Time) int {
	used := 0
	for _, r := range l.redemptions {
		if r.ItemType == it.Type && InWindowOn(it.Cadence, r.At, now, l.weekStart) {
			used += r.Quantity
		}
	}
	rem := it.Allowance() - used
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Remaining reports how many redemptions are left for itemType in the
// current window.
func (l *Ledger) Remaining(itemType string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.item(itemType)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownItem, itemType)
	}
	return l.remaining(it, l.now()), nil
}

// Redeem appends a redemption event for itemType. Fails with
// ErrQuotaExceeded when nothing remains in the current window.
func (l *Ledger) Redeem(itemType string) (Redemption, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.item(itemType)
	if !ok {
		return Redemption{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemType)
	}
	now := l.now()
	if l.remaining(it, now) == 0 {
		return Redemption{}, fmt.Errorf("%w: %s", ErrQuotaExceeded, itemType)
	}
	r := Redemption{
		ID:       uuid.NewString(),
		ItemType: itemType,
		At:       now,
		Quantity: 1,
	}
	l.redemptions = append(l.redemptions, r)
	return r, nil
}

// AdmitDefeat records an overage for itemType. Always permitted; remaining
// is unaffected.
func (l *Ledger) AdmitDefeat(itemType string) (Overage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.item(itemType); !ok {
		return Overage{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemType)
	}
	o := Overage{ID: uuid.NewString(), ItemType: itemType, At: l.now()}
	l.overages = append(l.overages, o)
	return o, nil
}

// UndoRedeem deletes the most recent redemption for itemType outright. Only
// valid within the optimistic undo window, before the event has been
// persisted as committed history.
func (l *Ledger) UndoRedeem(itemType string) (Redemption, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.redemptions) - 1; i >= 0; i-- {
		if l.redemptions[i].ItemType == itemType {
			r := l.redemptions[i]
			l.redemptions = append(l.redemptions[:i], l.redemptions[i+1:]...)
			return r, true
		}
	}
	return Redemption{}, false
}

// UndoAdmitDefeat deletes the most recent overage for itemType outright.
func (l *Ledger) UndoAdmitDefeat(itemType string) (Overage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.overages) - 1; i >= 0; i-- {
		if l.overages[i].ItemType == itemType {
			o := l.overages[i]
			l.overages = append(l.overages[:i], l.overages[i+1:]...)
			return o, true
		}
	}
	return Overage{}, false
}

// View classifies every item as of now. horizonDays bounds the coming-up
// look-ahead: an exhausted item whose window resets within that many days is
// listed in ComingUp as well as Unavailable.
func (l *Ledger) View(horizonDays int) View {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var v View
	for _, it := range l.items {
		st := ItemStatus{
			Item:           it,
			Remaining:      l.remaining(it, now),
			CountThisYear:  l.countThisYear(it.Type, now),
			QuotaAvailable: it.Allowance(),
		}
		if last, ok := l.lastRedeemed(it.Type); ok {
			st.LastRedeemed = &last
		}
		boundary := NextBoundaryOn(it.Cadence, now, l.weekStart)
		st.DaysUntil = DaysUntil(boundary, now)

		if st.Remaining > 0 {
			v.Available = append(v.Available, st)
			continue
		}
		v.Unavailable = append(v.Unavailable, st)
		if st.DaysUntil <= horizonDays {
			v.ComingUp = append(v.ComingUp, st)
		}
	}
	sort.Slice(v.ComingUp, func(i, j int) bool {
		return v.ComingUp[i].DaysUntil < v.ComingUp[j].DaysUntil
	})
	return v
}

// countThisYear must be called with the mutex held. Redemptions and
// overages both count toward the yearly statistic.
func (l *Ledger) countThisYear(itemType string, now time.Time) int {
	n := 0
	for _, r := range l.redemptions {
		if r.ItemType == itemType && r.At.Year() == now.Year() {
			n += r.Quantity
		}
	}
	for _, o := range l.overages {
		if o.ItemType == itemType && o.At.Year() == now.Year() {
			n++
		}
	}
	return n
}

// lastRedeemed must be called with the mutex held.
func (l *Ledger) lastRedeemed(itemType string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, r := range l.redemptions {
		if r.ItemType == itemType && r.At.After(last) {
			last = r.At
			found = true
		}
	}
	return last, found
}
