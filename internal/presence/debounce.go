package presence

import (
	"sync"
	"time"
)

// OfflineScheduler delays "went offline" notifications by a short window so
// that a reconnect (page reload) does not flap a user offline and back
// online. At most one task is pending per user; scheduling again replaces
// the previous task, and Cancel drops it.
type OfflineScheduler struct {
	mu      sync.Mutex
	window  time.Duration
	timers  map[string]*time.Timer
	stopped bool
}

// NewOfflineScheduler creates a scheduler with the given debounce window.
func NewOfflineScheduler(window time.Duration) *OfflineScheduler {
	return &OfflineScheduler{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule runs fn after the debounce window unless Cancel (or another
// Schedule) for the same user happens first.
func (s *OfflineScheduler) Schedule(userID string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if t, ok := s.timers[userID]; ok {
		t.Stop()
	}
	s.timers[userID] = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		delete(s.timers, userID)
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task for the user, if any, and reports whether
// one was pending.
func (s *OfflineScheduler) Cancel(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[userID]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, userID)
	return true
}

// Stop cancels all pending tasks. Used on shutdown.
func (s *OfflineScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for uid, t := range s.timers {
		t.Stop()
		delete(s.timers, uid)
	}
}
