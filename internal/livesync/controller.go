package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/five82/gymsync/internal/state"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configure a Controller.
type Options[T any] struct {
	ID    EntityID
	Fetch Fetcher[T]
	// Label names the owning screen in diagnostics.
	Label string

	// Context is the parent of every fetch context. Nil means Background.
	Context context.Context

	// Debounce is the quiet period applied to invalidation events.
	Debounce  time.Duration
	Scheduler Scheduler

	// Events, when set, is subscribed for EventNames at construction. Only
	// events passing Relevant reach the debouncer.
	Events     EventSource
	EventNames []string
	Relevant   Predicate

	// OnStateChange is called after every state mutation, in mutation order.
	OnStateChange func(state.SyncState[T])
	// OnBackgroundError receives failures of silent loads.
	OnBackgroundError func(state.ErrorInfo)
	Diagnostics       Diagnostics

	// Clone copies values handed out by State and OnStateChange.
	Clone func(T) T

	// Strict makes misuse (Load after Dispose) panic instead of returning
	// ErrDisposed.
	Strict bool
}

// Controller keeps one entity in sync with the backend. Loads are
// generation-numbered: starting a fetch cancels the previous one and any
// result that is not from the newest generation is thrown away.
type Controller[T any] struct {
	id       EntityID
	label    string
	fetch    Fetcher[T]
	parent   context.Context
	relevant Predicate
	strict   bool

	onChange          func(state.SyncState[T])
	onBackgroundError func(state.ErrorInfo)
	diag              Diagnostics

	store     state.Store[T]
	debouncer *Debouncer
	sub       *Subscription

	// issue builds the fetcher for a new generation. It runs with mu held so
	// the request it captures is ordered with the generation it gets.
	issue func() Fetcher[T]

	mu           sync.Mutex
	inflight     *Handle[T]
	inflightLoud bool
	guards       map[GuardID]Guard
	nextGuard    GuardID
	disposed     bool
	pending      []state.SyncState[T]
	delivering   bool
}

// New builds a controller and subscribes it to opts.Events.
func New[T any](opts Options[T]) (*Controller[T], error) {
	c, err := newController(opts)
	if err != nil {
		return nil, err
	}
	c.subscribe(opts.Events, opts.EventNames)
	return c, nil
}

func newController[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Fetch == nil {
		return nil, ErrNoFetcher
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	window := opts.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = NopDiagnostics{}
	}

	c := &Controller[T]{
		id:                opts.ID,
		label:             opts.Label,
		fetch:             opts.Fetch,
		parent:            parent,
		relevant:          opts.Relevant,
		strict:            opts.Strict,
		onChange:          opts.OnStateChange,
		onBackgroundError: opts.OnBackgroundError,
		diag:              diag,
		debouncer:         NewDebouncer(window, opts.Scheduler),
		guards:            make(map[GuardID]Guard),
	}
	c.store.Clone = opts.Clone
	c.issue = func() Fetcher[T] { return c.fetch }
	return c, nil
}

func (c *Controller[T]) subscribe(src EventSource, names []string) {
	if src == nil || len(names) == 0 {
		return
	}
	c.sub = NewSubscription(src)
	c.sub.Subscribe(names, c.relevant, c.invalidated)
}

// ID returns the tracked entity.
func (c *Controller[T]) ID() EntityID { return c.id }

// State returns the latest state.
func (c *Controller[T]) State() state.SyncState[T] { return c.store.Snapshot() }

// Generation returns the generation of the newest fetch.
func (c *Controller[T]) Generation() uint64 { return c.store.Generation() }

// DebounceWindow returns the invalidation quiet period.
func (c *Controller[T]) DebounceWindow() time.Duration { return c.debouncer.Window() }

// Load starts a fetch. A silent load is skipped while any guard vetoes it.
func (c *Controller[T]) Load(mode Mode) error {
	return c.start(mode, false)
}

// OnExternalInvalidation feeds an event through the relevance predicate and
// schedules a debounced silent load.
func (c *Controller[T]) OnExternalInvalidation(ev Event) {
	if c.relevant != nil && !c.relevant(ev) {
		return
	}
	c.invalidated(ev)
}

func (c *Controller[T]) invalidated(Event) {
	if c.isDisposed() {
		return
	}
	c.debouncer.Trigger(func() { _ = c.start(Silent, true) })
}

// FlushInvalidations runs a pending debounced refresh immediately.
func (c *Controller[T]) FlushInvalidations() bool {
	return c.debouncer.Flush()
}

// AddGuard registers g. Guards are ORed: any one returning true vetoes
// silent loads.
func (c *Controller[T]) AddGuard(g Guard) GuardID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextGuard++
	c.guards[c.nextGuard] = g
	return c.nextGuard
}

// RemoveGuard unregisters a guard. Unknown ids are ignored.
func (c *Controller[T]) RemoveGuard(id GuardID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guards, id)
}

// Dispose cancels the in-flight fetch and pending refresh and detaches every
// event listener. Nothing observable happens after it returns.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	h := c.inflight
	c.inflight = nil
	c.pending = nil
	c.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	c.debouncer.Cancel()
	c.sub.UnsubscribeAll()
}

// Disposed reports whether Dispose has been called.
func (c *Controller[T]) Disposed() bool { return c.isDisposed() }

func (c *Controller[T]) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// start begins a new generation. background marks loads driven by
// invalidations, which quietly do nothing once the controller is disposed.
func (c *Controller[T]) start(mode Mode, background bool) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return c.misuse(background)
	}
	guards := lo.Values(c.guards)
	c.mu.Unlock()

	// Guards read caller state, so they run without our lock held.
	if mode == Silent && lo.SomeBy(guards, func(g Guard) bool { return g() }) {
		c.diag.RefreshSkipped(c.label, c.id)
		return nil
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return c.misuse(background)
	}
	// A silent refresh that replaces a loud load still owes the user the
	// loud outcome.
	loud := mode == Loud || (c.inflight != nil && c.inflightLoud)
	if c.inflight != nil {
		c.inflight.Cancel()
	}
	gen := c.store.Begin(loud)
	h := Start(c.parent, gen, c.id, c.issue())
	c.inflight = h
	c.inflightLoud = loud
	c.queueLocked()
	c.mu.Unlock()

	effective := Silent
	if loud {
		effective = Loud
	}
	c.diag.FetchStarted(c.label, c.id, gen, effective, h.RequestID())
	c.deliver()
	go c.settle(h, loud)
	return nil
}

func (c *Controller[T]) misuse(background bool) error {
	if background {
		return nil
	}
	if c.strict {
		panic(ErrDisposed)
	}
	return ErrDisposed
}

// settle waits for h and applies its result if h is still the newest
// generation. The generation check, not the cancellation signal, is what
// keeps superseded results out.
func (c *Controller[T]) settle(h *Handle[T], loud bool) {
	<-h.Done()
	res, _ := h.Result()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		c.diag.FetchSettled(c.label, c.id, res.Generation, res.Outcome, false)
		return
	}
	if c.inflight == h {
		c.inflight = nil
	}

	var (
		applied bool
		bgErr   *state.ErrorInfo
	)
	switch res.Outcome {
	case OutcomeOK:
		applied = c.store.Succeed(res.Generation, res.Value)
	case OutcomeFailed:
		info := Describe(res.Err)
		if loud {
			applied = c.store.Fail(res.Generation, info)
		} else if applied = c.store.FailQuietly(res.Generation); applied {
			bgErr = &info
		}
	}
	if applied {
		c.queueLocked()
	}
	c.mu.Unlock()

	c.diag.FetchSettled(c.label, c.id, res.Generation, res.Outcome, applied)
	c.deliver()

	if bgErr != nil {
		c.diag.BackgroundError(c.label, c.id, *bgErr)
		if c.onBackgroundError != nil {
			c.onBackgroundError(*bgErr)
		}
	}
}

func (c *Controller[T]) queueLocked() {
	if c.onChange == nil {
		return
	}
	c.pending = append(c.pending, c.store.Snapshot())
}

// deliver hands queued snapshots to the observer in order. Only one goroutine
// delivers at a time; others enqueue and return, so an observer may call back
// into the controller.
func (c *Controller[T]) deliver() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	for len(c.pending) > 0 && !c.disposed {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		c.onChange(next)
		c.mu.Lock()
	}
	c.pending = nil
	c.delivering = false
	c.mu.Unlock()
}
