package state

import (
	"sync"
	"time"
)

// Status describes where a synchronized entity is in its fetch lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusRefreshing
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusRefreshing:
		return "refreshing"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Busy reports whether a fetch is in flight.
func (s Status) Busy() bool {
	return s == StatusLoading || s == StatusRefreshing
}

// ErrorInfo is the displayable form of a failed fetch.
type ErrorInfo struct {
	Message string
	Err     error
	At      time.Time
}

func (e ErrorInfo) Error() string {
	return e.Message
}

func (e ErrorInfo) Unwrap() error {
	return e.Err
}

// SyncState is the externally observable state of one synchronized entity.
type SyncState[T any] struct {
	Value      T
	HasValue   bool
	Status     Status
	LastError  *ErrorInfo
	Generation uint64
	UpdatedAt  time.Time
	// BackgroundFailures counts silent refreshes that failed since the last
	// success. It never affects Status.
	BackgroundFailures int
}

// Store holds a SyncState and applies generation-checked transitions to it.
// The zero value is ready to use.
type Store[T any] struct {
	// Clone copies values on the way in and out. Nil means values are copied
	// by assignment only.
	Clone func(T) T
	// Now defaults to time.Now.
	Now func() time.Time

	mu      sync.RWMutex
	state   SyncState[T]
	settled Status
}

// Begin starts a new generation and returns it. Loading is only used when the
// load is loud and nothing has been fetched yet; every other start is a
// Refreshing one so a visible value never flickers back to a spinner.
func (s *Store[T]) Begin(loud bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Generation++
	if loud && !s.state.HasValue {
		s.state.Status = StatusLoading
	} else {
		s.state.Status = StatusRefreshing
	}
	return s.state.Generation
}

// Succeed records value for gen. It returns false and changes nothing when gen
// has been superseded.
func (s *Store[T]) Succeed(gen uint64, value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		return false
	}
	s.state.Value = s.clone(value)
	s.state.HasValue = true
	s.state.Status = StatusReady
	s.state.LastError = nil
	s.state.BackgroundFailures = 0
	s.state.UpdatedAt = s.now()
	s.settled = StatusReady
	return true
}

// Fail records a loud failure for gen. The previous value is kept.
func (s *Store[T]) Fail(gen uint64, info ErrorInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		return false
	}
	if info.At.IsZero() {
		info.At = s.now()
	}
	s.state.Status = StatusError
	s.state.LastError = &info
	s.state.UpdatedAt = info.At
	s.settled = StatusError
	return true
}

// FailQuietly records a silent failure for gen. Value and LastError are left
// alone; Status returns to Ready when a value exists, otherwise to whatever
// the entity had settled on before the refresh started.
func (s *Store[T]) FailQuietly(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.state.Generation {
		return false
	}
	if s.state.HasValue {
		s.state.Status = StatusReady
	} else {
		s.state.Status = s.settled
	}
	s.state.BackgroundFailures++
	return true
}

// Generation returns the current generation.
func (s *Store[T]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() SyncState[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.state
	if s.state.HasValue {
		snap.Value = s.clone(s.state.Value)
	}
	if s.state.LastError != nil {
		info := *s.state.LastError
		snap.LastError = &info
	}
	return snap
}

func (s *Store[T]) clone(v T) T {
	if s.Clone == nil {
		return v
	}
	return s.Clone(v)
}

func (s *Store[T]) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
