package engine

import (
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================
// Deferred task scheduling
// ============================================================

func TestScheduleFires(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	s.Schedule("r1", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
	if s.Pending("r1") {
		t.Fatal("fired task should no longer be pending")
	}
}

func TestCancelPreventsRun(t *testing.T) {
	s := NewScheduler()
	var ran atomic.Bool
	s.Schedule("r1", 10*time.Millisecond, func() { ran.Store(true) })

	if !s.Cancel("r1") {
		t.Fatal("expected cancel to report true")
	}
	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("canceled task ran anyway")
	}
	if s.Cancel("r1") {
		t.Fatal("second cancel should report false")
	}
}

func TestRescheduleReplacesPriorTask(t *testing.T) {
	s := NewScheduler()
	var count atomic.Int32
	fired := make(chan struct{}, 2)

	s.Schedule("r1", 10*time.Millisecond, func() { count.Add(1); fired <- struct{}{} })
	s.Schedule("r1", 10*time.Millisecond, func() { count.Add(1); fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
	time.Sleep(50 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Fatalf("expected exactly one firing, got %d", got)
	}
}

func TestCancelAll(t *testing.T) {
	s := NewScheduler()
	var ran atomic.Bool
	s.Schedule("r1", 10*time.Millisecond, func() { ran.Store(true) })
	s.Schedule("r2", 10*time.Millisecond, func() { ran.Store(true) })

	s.CancelAll()
	time.Sleep(50 * time.Millisecond)
	if ran.Load() {
		t.Fatal("task ran after CancelAll")
	}
}

func TestStopRefusesNewWork(t *testing.T) {
	s := NewScheduler()
	s.Stop()

	var ran atomic.Bool
	s.Schedule("r1", time.Millisecond, func() { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("stopped scheduler accepted work")
	}
	if s.Pending("r1") {
		t.Fatal("stopped scheduler holds pending tasks")
	}
}
