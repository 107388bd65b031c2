// Package anim models the externally owned transition session a command
// attaches to while it drives the renderer. The session is listenable and
// cancelable; end listeners fire exactly once.
package anim

import "sync"

// Session is one running transition. The renderer owns its lifetime; the
// dispatcher attaches listeners and may cancel it.
type Session struct {
	mu        sync.Mutex
	ended     bool
	canceled  bool
	nextID    int
	listeners map[int]func(canceled bool)
}

func NewSession() *Session {
	return &Session{
		listeners: map[int]func(canceled bool){},
	}
}

// AddEndListener registers fn to run when the session ends or is canceled.
// If the session already ended, fn runs immediately. The returned func
// removes the listener; removal after firing is a no-op.
func (s *Session) AddEndListener(fn func(canceled bool)) (remove func()) {
	s.mu.Lock()
	if s.ended {
		canceled := s.canceled
		s.mu.Unlock()
		fn(canceled)
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// End marks the session finished normally and fires end listeners.
func (s *Session) End() {
	s.finish(false)
}

// Cancel aborts the session and fires end listeners with canceled=true.
func (s *Session) Cancel() {
	s.finish(true)
}

// Ended reports whether the session has reached its end state.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) finish(canceled bool) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.canceled = canceled
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	// Clear the registry so late removals and double-End cannot re-fire.
	s.listeners = map[int]func(canceled bool){}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(canceled)
	}
}
