package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/state"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	require.Error(t, err)
}

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gymsync.log")

	log, closeFn, err := NewLogger(path, "warn")
	require.NoError(t, err)
	log.Info("dropped by level")
	log.Warn("feed disconnected", zap.String("screen", "customer-detail"))
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"feed disconnected"`)
	assert.Contains(t, lines[0], `"screen":"customer-detail"`)
	assert.Contains(t, lines[0], `"ts":`)
}

func TestNewLogger_EmptyPathIsNop(t *testing.T) {
	log, closeFn, err := NewLogger("", "info")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		log.Error("nowhere")
		closeFn()
	})

	_, _, err = NewLogger(filepath.Join(t.TempDir(), "x.log"), "loud")
	assert.Error(t, err)
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.IncFeedEvent("customer.updated")
	m.IncFeedEvent("customer.updated")
	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.IncFeedEvent("x") })

	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedEvents.WithLabelValues("customer.updated")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gymsync_feed_events_total{event="customer.updated"} 2`)
}

func TestDiagnostics_CountsAndLogs(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDiagnostics(zap.New(core), m)

	d.FetchStarted("customer-detail", "c-1", 1, livesync.Loud, "req-1")
	d.FetchStarted("customer-detail", "c-1", 2, livesync.Silent, "req-2")
	d.FetchSettled("customer-detail", "c-1", 1, livesync.OutcomeCancelled, false)
	d.FetchSettled("customer-detail", "c-1", 1, livesync.OutcomeOK, false)
	d.FetchSettled("customer-detail", "c-1", 2, livesync.OutcomeOK, true)
	d.FetchSettled("customer-detail", "c-1", 3, livesync.OutcomeFailed, true)
	d.RefreshSkipped("payment-history", "c-1")
	d.BackgroundError("payment-history", "c-1", state.ErrorInfo{Message: "offline", Err: errors.New("dial tcp")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("customer-detail", "loud")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("customer-detail", "silent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("customer-detail", ResultCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("customer-detail", ResultStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("customer-detail", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("customer-detail", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardedSkips.WithLabelValues("payment-history")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backgroundErrors.WithLabelValues("payment-history")))

	stale := logs.FilterMessage("stale fetch discarded").All()
	require.Len(t, stale, 1)
	assert.Equal(t, uint64(1), stale[0].ContextMap()["generation"])

	bg := logs.FilterMessage("background refresh failed").All()
	require.Len(t, bg, 1)
	assert.Equal(t, zapcore.WarnLevel, bg[0].Level)
	assert.Equal(t, "offline", bg[0].ContextMap()["message"])

	started := logs.FilterMessage("fetch started").FilterField(zap.String("request_id", "req-2"))
	assert.Equal(t, 1, started.Len())
}

func TestDiagnostics_WithoutMetrics(t *testing.T) {
	d := NewDiagnostics(nil, nil)
	assert.NotPanics(t, func() {
		d.FetchStarted("x", "1", 1, livesync.Loud, "")
		d.FetchSettled("x", "1", 1, livesync.OutcomeOK, true)
		d.RefreshSkipped("x", "1")
		d.BackgroundError("x", "1", state.ErrorInfo{})
	})
}
