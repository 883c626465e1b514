package scheduler

import (
	"sync"
	"time"
)

// ManualScheduler is a Scheduler driven by a virtual clock. Nothing fires
// until Advance is called, which makes timing-dependent logic fully
// deterministic in tests.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  Handle
	now     time.Duration
	pending map[Handle]*pendingCall
}

type pendingCall struct {
	at time.Duration
	fn func()
}

// NewManualScheduler creates a ManualScheduler with its clock at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		pending: make(map[Handle]*pendingCall),
	}
}

func (s *ManualScheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h := s.nextID
	s.pending[h] = &pendingCall{
		at: s.now + d,
		fn: fn,
	}
	return h
}

func (s *ManualScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

func (s *ManualScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := range s.pending {
		delete(s.pending, h)
	}
}

// Pending returns the number of outstanding callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the virtual clock forward by d and fires every callback
// that comes due, in order. Callbacks run without the scheduler lock held,
// so they may schedule or cancel further callbacks; newly scheduled
// callbacks that fall within the window fire in the same call.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	deadline := s.now + d
	for {
		h, call := s.nextDue(deadline)
		if call == nil {
			break
		}
		s.now = call.at
		delete(s.pending, h)
		s.mu.Unlock()
		call.fn()
		s.mu.Lock()
	}
	s.now = deadline
	s.mu.Unlock()
}

// nextDue returns the earliest pending callback at or before the deadline.
// Ties break on scheduling order. Callers must hold the lock.
func (s *ManualScheduler) nextDue(deadline time.Duration) (Handle, *pendingCall) {
	var bestHandle Handle
	var best *pendingCall
	for h, call := range s.pending {
		if call.at > deadline {
			continue
		}
		if best == nil || call.at < best.at || (call.at == best.at && h < bestHandle) {
			bestHandle = h
			best = call
		}
	}
	return bestHandle, best
}
