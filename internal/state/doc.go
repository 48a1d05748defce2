// Package state defines the observable state of a synchronized entity and the
// store that guards it.
//
// # Overview
//
// A SyncState is what a screen renders: the last value fetched from the
// backend, a Status, the last loud error and the generation counter that
// identifies the newest fetch. Store owns one SyncState and is the only place
// its fields change.
//
// # Generations
//
// Every fetch starts with Begin, which increments the generation and returns
// it. Completions (Succeed, Fail, FailQuietly) carry the generation they were
// issued under and are ignored unless it still matches:
//
//	gen := store.Begin(true)      // generation 1, Loading
//	next := store.Begin(false)    // generation 2, Refreshing
//	store.Succeed(gen, old)       // false, discarded
//	store.Succeed(next, fresh)    // true, Ready
//
// This makes the result order irrelevant: a slow response for an old request
// can never overwrite a newer one.
//
// # Status Rules
//
//   - Loading only while nothing has been fetched and the load is loud
//   - Refreshing whenever a value is on screen and a fetch is in flight
//   - Error only after a loud failure; the previous value is kept
//   - Ready after any success
//
// A quiet failure (FailQuietly) never produces Error. It counts the failure in
// BackgroundFailures and drops back to the last settled status.
//
// # Concurrency Model
//
// Store uses a readers-writer lock. Transitions take the write lock, Snapshot
// takes the read lock and returns a copy (values are passed through Clone
// when one is set), so callers never share mutable state with the store.
//
// The zero value is ready to use:
//
//	var s state.Store[Customer]
//	snap := s.Snapshot() // Idle, generation 0
package state
