package editor

import (
	"sync"
	"time"
)

// Scheduler debounces autosaves per editor. Every edit reschedules the
// editor's timer, so at most one save timer is pending per editor and the
// save that eventually fires sees the latest field values.
type Scheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	save   func(editorID string)
}

// NewScheduler creates a scheduler that invokes save after delay of
// edit-silence per editor.
func NewScheduler(delay time.Duration, save func(editorID string)) *Scheduler {
	return &Scheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		save:   save,
	}
}

// Schedule (re)arms the editor's save timer, cancelling any pending one.
func (s *Scheduler) Schedule(editorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[editorID]; ok {
		t.Stop()
	}
	s.timers[editorID] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, editorID)
		s.mu.Unlock()
		s.save(editorID)
	})
}

// Cancel drops the editor's pending save, if any. Called on editor close and
// on send.
func (s *Scheduler) Cancel(editorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[editorID]; ok {
		t.Stop()
		delete(s.timers, editorID)
	}
}

// Stop cancels every pending save.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
