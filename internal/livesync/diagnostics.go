package livesync

import "github.com/five82/gymsync/internal/state"

// Diagnostics observes controller internals that never reach SyncState:
// stale discards, guarded skips and background errors.
type Diagnostics interface {
	FetchStarted(label string, id EntityID, gen uint64, mode Mode, requestID string)
	FetchSettled(label string, id EntityID, gen uint64, outcome Outcome, applied bool)
	RefreshSkipped(label string, id EntityID)
	BackgroundError(label string, id EntityID, info state.ErrorInfo)
}

// NopDiagnostics discards everything.
type NopDiagnostics struct{}

func (NopDiagnostics) FetchStarted(string, EntityID, uint64, Mode, string) {}
func (NopDiagnostics) FetchSettled(string, EntityID, uint64, Outcome, bool) {}
func (NopDiagnostics) RefreshSkipped(string, EntityID) {}
func (NopDiagnostics) BackgroundError(string, EntityID, state.ErrorInfo) {}
