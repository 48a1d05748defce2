package livesync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Fetcher loads one entity. It should return promptly once ctx is cancelled,
// but correctness never depends on it doing so.
type Fetcher[T any] func(ctx context.Context, id EntityID) (T, error)

// Outcome is how a fetch ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the settled value of a Handle.
type Result[T any] struct {
	Generation uint64
	RequestID  string
	Outcome    Outcome
	Value      T
	Err        error
}

// Handle is one in-flight fetch.
type Handle[T any] struct {
	gen       uint64
	requestID string
	cancel    context.CancelFunc
	done      chan struct{}
	result    Result[T]
}

type requestIDKey struct{}

// RequestIDFrom returns the request id Start attached to ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Start runs fetch on its own goroutine and returns a handle for it. The
// handle resolves exactly once. If the fetch context was cancelled by the time
// fetch returns, the result is OutcomeCancelled even when fetch produced a
// value.
func Start[T any](parent context.Context, gen uint64, id EntityID, fetch Fetcher[T]) *Handle[T] {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle[T]{
		gen:       gen,
		requestID: uuid.NewString(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	ctx = context.WithValue(ctx, requestIDKey{}, h.requestID)
	go h.run(ctx, id, fetch)
	return h
}

func (h *Handle[T]) run(ctx context.Context, id EntityID, fetch Fetcher[T]) {
	defer h.cancel()

	value, err := call(ctx, id, fetch)
	res := Result[T]{Generation: h.gen, RequestID: h.requestID}
	switch {
	case ctx.Err() != nil:
		res.Outcome = OutcomeCancelled
		res.Err = fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = err
	default:
		res.Outcome = OutcomeOK
		res.Value = value
	}
	h.result = res
	close(h.done)
}

func call[T any](ctx context.Context, id EntityID, fetch Fetcher[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s panicked: %v", id, r)
		}
	}()
	return fetch(ctx, id)
}

// Generation is the controller generation this fetch was issued under.
func (h *Handle[T]) Generation() uint64 { return h.gen }

// RequestID is a unique id for diagnostics and request tracing.
func (h *Handle[T]) RequestID() string { return h.requestID }

// Cancel signals the fetch to stop. It is safe to call more than once.
func (h *Handle[T]) Cancel() { h.cancel() }

// Done is closed once the result is available.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Result returns the settled result and whether the fetch has finished.
func (h *Handle[T]) Result() (Result[T], bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result[T]{}, false
	}
}

// Wait blocks until the fetch settles or ctx ends.
func (h *Handle[T]) Wait(ctx context.Context) (Result[T], error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}
