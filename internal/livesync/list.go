package livesync

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/five82/gymsync/internal/state"
)

// DefaultPageSize is used when a list query has no page size.
const DefaultPageSize = 25

// Query selects one page of a filtered collection.
type Query struct {
	Page     int
	PageSize int
	Filters  map[string]string
}

func (q Query) clone() Query {
	q.Filters = maps.Clone(q.Filters)
	return q
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Page is one page of a collection.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// LastPage returns the highest page number, or 0 when the total is unknown.
func (p Page[T]) LastPage() int {
	if p.Total <= 0 || p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func clonePage[T any](p Page[T]) Page[T] {
	p.Items = append([]T(nil), p.Items...)
	return p
}

// PageFetcher loads the page described by q.
type PageFetcher[T any] func(ctx context.Context, id EntityID, q Query) (Page[T], error)

// ListState is the observable state of a list: the fetched page plus the
// query the screen is currently on.
type ListState[T any] struct {
	state.SyncState[Page[T]]
	Query Query
}

// ListOptions configure a ListController. Fields mirror Options.
type ListOptions[T any] struct {
	ID      EntityID
	Fetch   PageFetcher[T]
	Query   Query
	Label   string
	Context context.Context

	Debounce  time.Duration
	Scheduler Scheduler

	Events     EventSource
	EventNames []string
	Relevant   Predicate

	OnStateChange     func(ListState[T])
	OnBackgroundError func(state.ErrorInfo)
	Diagnostics       Diagnostics

	Strict bool
}

// ListController syncs a paginated collection. Background refreshes always
// re-fetch the page the user is on; only GoToPage, SetFilters and SetPageSize
// move the query, and each of those is a loud load.
type ListController[T any] struct {
	ctl   *Controller[Page[T]]
	fetch PageFetcher[T]

	mu    sync.Mutex
	query Query
}

// NewList builds a list controller and subscribes it to opts.Events.
func NewList[T any](opts ListOptions[T]) (*ListController[T], error) {
	if opts.Fetch == nil {
		return nil, ErrNoFetcher
	}
	l := &ListController[T]{
		fetch: opts.Fetch,
		query: opts.Query.normalized().clone(),
	}

	inner := Options[Page[T]]{
		ID:                opts.ID,
		Label:             opts.Label,
		Context:           opts.Context,
		Debounce:          opts.Debounce,
		Scheduler:         opts.Scheduler,
		Relevant:          opts.Relevant,
		OnBackgroundError: opts.OnBackgroundError,
		Diagnostics:       opts.Diagnostics,
		Clone:             clonePage[T],
		Strict:            opts.Strict,
		Fetch: func(ctx context.Context, id EntityID) (Page[T], error) {
			return l.fetch(ctx, id, l.Query())
		},
	}
	if opts.OnStateChange != nil {
		onChange := opts.OnStateChange
		inner.OnStateChange = func(s state.SyncState[Page[T]]) {
			onChange(ListState[T]{SyncState: s, Query: l.Query()})
		}
	}

	ctl, err := newController(inner)
	if err != nil {
		return nil, err
	}
	// Capture the query when the generation is issued, not when the fetch
	// goroutine gets around to running.
	ctl.issue = func() Fetcher[Page[T]] {
		q := l.Query()
		return func(ctx context.Context, id EntityID) (Page[T], error) {
			return l.fetch(ctx, id, q)
		}
	}
	l.ctl = ctl
	ctl.subscribe(opts.Events, opts.EventNames)
	return l, nil
}

// Query returns a copy of the current query.
func (l *ListController[T]) Query() Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query.clone()
}

// State returns the latest page state with the current query.
func (l *ListController[T]) State() ListState[T] {
	return ListState[T]{SyncState: l.ctl.State(), Query: l.Query()}
}

// Generation returns the generation of the newest fetch.
func (l *ListController[T]) Generation() uint64 { return l.ctl.Generation() }

// Load re-fetches the current page.
func (l *ListController[T]) Load(mode Mode) error { return l.ctl.Load(mode) }

// GoToPage moves to page n and loads it loudly. n is clamped to the known
// page range.
func (l *ListController[T]) GoToPage(n int) error {
	last := l.ctl.State().Value.LastPage()
	l.mu.Lock()
	if last > 0 && n > last {
		n = last
	}
	if n < 1 {
		n = 1
	}
	l.query.Page = n
	l.mu.Unlock()
	return l.ctl.Load(Loud)
}

// NextPage moves forward one page.
func (l *ListController[T]) NextPage() error { return l.GoToPage(l.Query().Page + 1) }

// PrevPage moves back one page.
func (l *ListController[T]) PrevPage() error { return l.GoToPage(l.Query().Page - 1) }

// SetFilters replaces the filters, returns to page 1 and loads loudly.
func (l *ListController[T]) SetFilters(filters map[string]string) error {
	l.mu.Lock()
	l.query.Filters = maps.Clone(filters)
	l.query.Page = 1
	l.mu.Unlock()
	return l.ctl.Load(Loud)
}

// SetPageSize changes the page size, returns to page 1 and loads loudly.
func (l *ListController[T]) SetPageSize(size int) error {
	if size <= 0 {
		size = DefaultPageSize
	}
	l.mu.Lock()
	l.query.PageSize = size
	l.query.Page = 1
	l.mu.Unlock()
	return l.ctl.Load(Loud)
}

// OnExternalInvalidation schedules a debounced silent refresh of the current
// page.
func (l *ListController[T]) OnExternalInvalidation(ev Event) { l.ctl.OnExternalInvalidation(ev) }

// FlushInvalidations runs a pending refresh immediately.
func (l *ListController[T]) FlushInvalidations() bool { return l.ctl.FlushInvalidations() }

// AddGuard registers a guard that vetoes silent refreshes.
func (l *ListController[T]) AddGuard(g Guard) GuardID { return l.ctl.AddGuard(g) }

// RemoveGuard unregisters a guard.
func (l *ListController[T]) RemoveGuard(id GuardID) { l.ctl.RemoveGuard(id) }

// Dispose tears the controller down.
func (l *ListController[T]) Dispose() { l.ctl.Dispose() }

// Disposed reports whether Dispose has been called.
func (l *ListController[T]) Disposed() bool { return l.ctl.Disposed() }
