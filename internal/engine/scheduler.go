package engine

import (
	"sync"
	"time"
)

// Scheduler maps row ids to cancelable deferred tasks. Scheduling the same
// id again replaces the previous task (the grace window restarts); Cancel is
// synchronous with respect to task firing, so a cancel that wins the race
// guarantees the task never runs.
type Scheduler struct {
	mu      sync.Mutex
	gen     uint64
	pending map[string]*schedTask
	stopped bool
}

type schedTask struct {
	timer *time.Timer
	gen   uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: map[string]*schedTask{}}
}

// Schedule runs fn after delay unless canceled or rescheduled first.
func (s *Scheduler) Schedule(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.pending[id]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	t := &schedTask{gen: gen}
	t.timer = time.AfterFunc(delay, func() {
		if s.claim(id, gen) {
			fn()
		}
	})
	s.pending[id] = t
}

// claim removes the task if it is still the registered one for id.
// A timer whose task was canceled or replaced fails the claim and its fn
// never runs.
func (s *Scheduler) claim(id string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	if !ok || t.gen != gen {
		return false
	}
	delete(s.pending, id)
	return true
}

// Cancel drops the pending task for id, reporting whether one existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.pending, id)
	return true
}

// Pending reports whether id has a task waiting to fire.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, id)
	}
}

// Stop cancels everything and refuses further scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, id)
	}
}
