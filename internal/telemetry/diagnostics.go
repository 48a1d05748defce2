package telemetry

import (
	"go.uber.org/zap"

	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/state"
)

// Fetch result labels.
const (
	ResultApplied   = "applied"
	ResultStale     = "stale"
	ResultFailed    = "failed"
	ResultCancelled = "cancelled"
)

// Diagnostics logs controller internals and counts them. A nil Metrics only
// logs.
type Diagnostics struct {
	log     *zap.Logger
	metrics *Metrics
}

var _ livesync.Diagnostics = (*Diagnostics)(nil)

// NewDiagnostics returns diagnostics reporting to log and m.
func NewDiagnostics(log *zap.Logger, m *Metrics) *Diagnostics {
	if log == nil {
		log = zap.NewNop()
	}
	return &Diagnostics{log: log, metrics: m}
}

func (d *Diagnostics) FetchStarted(label string, id livesync.EntityID, gen uint64, mode livesync.Mode, requestID string) {
	d.log.Debug("fetch started",
		zap.String("screen", label),
		zap.String("entity", string(id)),
		zap.Uint64("generation", gen),
		zap.Stringer("mode", mode),
		zap.String("request_id", requestID),
	)
	if d.metrics != nil {
		d.metrics.fetches.WithLabelValues(label, mode.String()).Inc()
	}
}

func (d *Diagnostics) FetchSettled(label string, id livesync.EntityID, gen uint64, outcome livesync.Outcome, applied bool) {
	result := resultLabel(outcome, applied)
	fields := []zap.Field{
		zap.String("screen", label),
		zap.String("entity", string(id)),
		zap.Uint64("generation", gen),
		zap.String("result", result),
	}
	if result == ResultStale {
		d.log.Info("stale fetch discarded", fields...)
	} else {
		d.log.Debug("fetch settled", fields...)
	}
	if d.metrics != nil {
		d.metrics.fetchResults.WithLabelValues(label, result).Inc()
	}
}

func (d *Diagnostics) RefreshSkipped(label string, id livesync.EntityID) {
	d.log.Debug("refresh skipped by guard", zap.String("screen", label), zap.String("entity", string(id)))
	if d.metrics != nil {
		d.metrics.guardedSkips.WithLabelValues(label).Inc()
	}
}

func (d *Diagnostics) BackgroundError(label string, id livesync.EntityID, info state.ErrorInfo) {
	d.log.Warn("background refresh failed",
		zap.String("screen", label),
		zap.String("entity", string(id)),
		zap.String("message", info.Message),
		zap.Error(info.Err),
	)
	if d.metrics != nil {
		d.metrics.backgroundErrors.WithLabelValues(label).Inc()
	}
}

// resultLabel collapses an outcome into one metric label. Results that were
// not applied are stale unless they were cancelled first.
func resultLabel(outcome livesync.Outcome, applied bool) string {
	switch {
	case outcome == livesync.OutcomeCancelled:
		return ResultCancelled
	case !applied:
		return ResultStale
	case outcome == livesync.OutcomeFailed:
		return ResultFailed
	default:
		return ResultApplied
	}
}
