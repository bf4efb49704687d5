package engine

import "testing"

// ============================================================
// Event bus
// ============================================================

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var got []int
	b.Subscribe(func(Event) { got = append(got, 1) })
	b.Subscribe(func(Event) { got = append(got, 2) })
	b.Subscribe(func(Event) { got = append(got, 3) })

	b.Publish(Event{Kind: RefreshRequested})

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	var count int
	unsub := b.Subscribe(func(Event) { count++ })

	b.Publish(Event{Kind: RowStaged})
	unsub()
	b.Publish(Event{Kind: RowStaged})

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}

	// Double unsubscribe is harmless.
	unsub()
}

func TestBusPayloadPassthrough(t *testing.T) {
	b := NewBus()
	var got Event
	b.Subscribe(func(e Event) { got = e })

	want := Event{Kind: RowStaged, Collection: "todos", RowID: "r1", Deadline: 12345}
	b.Publish(want)

	if got != want {
		t.Fatalf("event mismatch: got %+v want %+v", got, want)
	}
}

func TestBusPublishWithNoSubscribers(t *testing.T) {
	b := NewBus()
	b.Publish(Event{Kind: RowCommitted})
}
