// Package livesync keeps one displayed entity consistent with server state.
//
// # Overview
//
// A screen that shows a backend record gets fresh data from three places:
// explicit loads (mount, retry), realtime invalidation events and lifecycle
// teardown. Controller combines them without races:
//
//	UI mount ──> Load(Loud) ──> Start ──> fetcher ──> Store.Succeed ──> OnStateChange
//	event ──> Subscription (relevance) ──> Debouncer ──> Load(Silent) ──┘
//
// # Components
//
//   - Start / Handle: one cancellable fetch, resolving to ok, failed or cancelled
//   - Debouncer: trailing-edge coalescing with Flush and Cancel
//   - Subscription: named listeners on an EventSource, detached together
//   - Controller: generations, guards, loud/silent policy, ordered notifications
//   - ListController: a Controller over pages that keeps the user's page
//
// # Loud and Silent
//
// Loud loads are the ones a user asked for. Their failures become an Error
// status. Silent loads come from invalidation events; their failures go to
// OnBackgroundError and the value on screen stays as it was. Neither kind
// ever shows Loading once a value exists.
//
// # Ordering
//
// Every load increments the generation and cancels the previous fetch. When a
// fetch settles its result is applied only if its generation is still the
// newest. Transports that ignore cancellation therefore cannot resurrect old
// data, no matter what order responses arrive in.
//
// # Usage Example
//
//	ctl, err := livesync.New(livesync.Options[Customer]{
//		ID:         "c-42",
//		Fetch:      client.FetchCustomer,
//		Events:     hub,
//		EventNames: []string{"customer.updated"},
//		Relevant:   livesync.FieldEquals("customerId", "c-42"),
//		Debounce:   500 * time.Millisecond,
//		OnStateChange: func(s state.SyncState[Customer]) {
//			render(s)
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer ctl.Dispose()
//	wizard := ctl.AddGuard(func() bool { return wizardOpen })
//	_ = ctl.Load(livesync.Loud)
package livesync
