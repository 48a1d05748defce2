package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's Prometheus counters on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	fetches          *prometheus.CounterVec
	fetchResults     *prometheus.CounterVec
	guardedSkips     *prometheus.CounterVec
	backgroundErrors *prometheus.CounterVec
	feedEvents       *prometheus.CounterVec
}

// NewMetrics registers every counter on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymsync_fetches_total",
			Help: "Fetches started per screen and load mode.",
		}, []string{"screen", "mode"}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymsync_fetch_results_total",
			Help: "Settled fetches per screen; result is applied, stale, failed or cancelled.",
		}, []string{"screen", "result"}),
		guardedSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymsync_guarded_skips_total",
			Help: "Background refreshes vetoed by a guard.",
		}, []string{"screen"}),
		backgroundErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymsync_background_errors_total",
			Help: "Background refreshes that failed without disturbing the screen.",
		}, []string{"screen"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymsync_feed_events_total",
			Help: "Events received from the backend stream.",
		}, []string{"event"}),
	}
	for _, c := range []prometheus.Collector{m.fetches, m.fetchResults, m.guardedSkips, m.backgroundErrors, m.feedEvents} {
		if err := m.reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// IncFeedEvent counts one event from the backend stream.
func (m *Metrics) IncFeedEvent(name string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(name).Inc()
}
