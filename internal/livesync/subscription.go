package livesync

import "sync"

type registration struct {
	name string
	id   ListenerID
}

// Subscription tracks the listeners one controller registered on an
// EventSource so they can all be detached at teardown.
type Subscription struct {
	src EventSource

	mu     sync.Mutex
	regs   []registration
	closed bool
}

// NewSubscription returns an empty subscription on src.
func NewSubscription(src EventSource) *Subscription {
	return &Subscription{src: src}
}

// Subscribe registers handler for every name. Events failing relevant are
// dropped before handler runs. Subscribing after UnsubscribeAll does nothing.
func (s *Subscription) Subscribe(names []string, relevant Predicate, handler Handler) {
	if s == nil || s.src == nil || handler == nil {
		return
	}
	listener := func(ev Event) {
		if s.isClosed() {
			return
		}
		if relevant != nil && !relevant(ev) {
			return
		}
		handler(ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, name := range names {
		id := s.src.On(name, listener)
		s.regs = append(s.regs, registration{name: name, id: id})
	}
}

// UnsubscribeAll detaches every listener. It is idempotent, and events that
// race with it are dropped.
func (s *Subscription) UnsubscribeAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	regs := s.regs
	s.regs = nil
	s.closed = true
	s.mu.Unlock()

	for _, r := range regs {
		s.src.Off(r.name, r.id)
	}
}

// Len returns the number of registered listeners.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
