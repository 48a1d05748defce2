package livesynctest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/gymsync/internal/livesync"
)

// WaitTimeout bounds how long helpers wait for asynchronous work.
const WaitTimeout = 2 * time.Second

// Call is one fetch issued against a Source, waiting for the test to answer.
type Call[T any] struct {
	ID    livesync.EntityID
	Query livesync.Query
	Ctx   context.Context

	reply chan reply[T]
}

type reply[T any] struct {
	value T
	err   error
}

// Resolve answers the call with v.
func (c *Call[T]) Resolve(v T) { c.reply <- reply[T]{value: v} }

// Fail answers the call with err.
func (c *Call[T]) Fail(err error) { c.reply <- reply[T]{err: err} }

// Cancelled reports whether the caller gave up on this call.
func (c *Call[T]) Cancelled() bool { return c.Ctx.Err() != nil }

// RequestID returns the request id the controller attached.
func (c *Call[T]) RequestID() string { return livesync.RequestIDFrom(c.Ctx) }

// Source is a scripted data source. Each fetch blocks until the test resolves
// it through the Call returned by Next.
type Source[T any] struct {
	// IgnoreCancel makes fetches wait for an answer even after their context
	// ends, like a transport that cannot abort a request.
	IgnoreCancel bool

	calls chan *Call[T]
	count atomic.Int64
}

// NewSource returns an empty source.
func NewSource[T any]() *Source[T] {
	return &Source[T]{calls: make(chan *Call[T], 64)}
}

// Fetch satisfies livesync.Fetcher.
func (s *Source[T]) Fetch(ctx context.Context, id livesync.EntityID) (T, error) {
	return s.do(ctx, id, livesync.Query{})
}

// FetchQuery satisfies livesync.PageFetcher when T is a livesync.Page.
func (s *Source[T]) FetchQuery(ctx context.Context, id livesync.EntityID, q livesync.Query) (T, error) {
	return s.do(ctx, id, q)
}

func (s *Source[T]) do(ctx context.Context, id livesync.EntityID, q livesync.Query) (T, error) {
	s.count.Add(1)
	c := &Call[T]{ID: id, Query: q, Ctx: ctx, reply: make(chan reply[T], 1)}
	s.calls <- c

	if s.IgnoreCancel {
		r := <-c.reply
		return r.value, r.err
	}
	select {
	case r := <-c.reply:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Next returns the next issued call, failing the test if none arrives.
func (s *Source[T]) Next(tb testing.TB) *Call[T] {
	tb.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(WaitTimeout):
		tb.Fatalf("no fetch issued within %v", WaitTimeout)
		return nil
	}
}

// ExpectNoCall fails the test if a fetch is issued within wait.
func (s *Source[T]) ExpectNoCall(tb testing.TB, wait time.Duration) {
	tb.Helper()
	select {
	case c := <-s.calls:
		tb.Fatalf("unexpected fetch for %q (query %+v)", c.ID, c.Query)
	case <-time.After(wait):
	}
}

// Calls returns how many fetches have been issued.
func (s *Source[T]) Calls() int { return int(s.count.Load()) }

// Recorder collects observer notifications.
type Recorder[S any] struct {
	mu     sync.Mutex
	states []S
}

// Record appends s. Pass it as an OnStateChange callback.
func (r *Recorder[S]) Record(s S) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

// States returns a copy of everything recorded.
func (r *Recorder[S]) States() []S {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]S(nil), r.states...)
}

// Len returns the number of notifications.
func (r *Recorder[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Last returns the newest notification.
func (r *Recorder[S]) Last() (S, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		var zero S
		return zero, false
	}
	return r.states[len(r.states)-1], true
}
