package engine

import "sync"

// EventKind identifies an engine event. The set is closed; view modules
// switch on it rather than matching strings.
type EventKind int

const (
	// RefreshRequested asks sibling views to reload their base snapshots.
	RefreshRequested EventKind = iota
	// RowStaged fires when a patch enters the grace window. Deadline carries
	// the instant the pending commit will fire; the undo toast tracks it.
	RowStaged
	// RowCommitted fires after a successful backing-store write.
	RowCommitted
	// CommitFailed fires after a failed write; the patch has been discarded
	// and the working view has reverted to the last known-good snapshot.
	CommitFailed
	// RowDiscarded fires when an undo throws a patch away before commit.
	RowDiscarded
)

// Event is the payload delivered to subscribers.
type Event struct {
	Kind       EventKind
	Collection string
	RowID      string
	Deadline   int64 // unix millis; set for RowStaged
	Err        error // set for CommitFailed
}

// Bus is a process-wide publish/subscribe channel for engine events.
// Delivery is synchronous, in registration order, with no buffering; a
// subscriber that needs to do real work should hand the event off itself.
type Bus struct {
	mu   sync.Mutex
	next int
	subs []busSub
}

type busSub struct {
	id int
	fn func(Event)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every subsequent Publish. The returned func
// removes the subscription; calling it twice is harmless.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, busSub{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes all current subscribers with e, in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]busSub, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}
