package scheduler

import (
	"sync"
	"time"
)

// TimerScheduler runs callbacks on real timers via time.AfterFunc.
//
// A fired callback first re-checks its own registration under the lock, so
// a Cancel or CancelAll that wins the race suppresses it even when the
// underlying timer already expired.
type TimerScheduler struct {
	mu     sync.Mutex
	nextID Handle
	timers map[Handle]*time.Timer
}

// NewTimerScheduler creates a new TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[Handle]*time.Timer),
	}
}

func (s *TimerScheduler) After(d time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h := s.nextID
	s.timers[h] = time.AfterFunc(d, func() {
		s.mu.Lock()
		if _, ok := s.timers[h]; !ok {
			// Cancelled between expiry and execution.
			s.mu.Unlock()
			return
		}
		delete(s.timers, h)
		s.mu.Unlock()
		fn()
	})
	return h
}

func (s *TimerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, ok := s.timers[h]
	if !ok {
		return
	}
	timer.Stop()
	delete(s.timers, h)
}

func (s *TimerScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, timer := range s.timers {
		timer.Stop()
		delete(s.timers, h)
	}
}

// Pending returns the number of outstanding callbacks.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
