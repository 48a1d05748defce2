package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/five82/gymsync/internal/logtail"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// backend serves one customer, their payments and an event stream that
// announces a customer update once the customer has been fetched.
type backend struct {
	customerHits atomic.Int64
	fetched      chan struct{}
	once         sync.Once
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{fetched: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/customers/c-1", func(w http.ResponseWriter, _ *http.Request) {
		b.customerHits.Add(1)
		b.once.Do(func() { close(b.fetched) })
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"c-1","firstName":"Dana","lastName":"Lopez","status":"active",
			"contract":{"plan":"Annual","monthlyFee":"39.90","endsAt":"2027-01-31"}}`)
	})
	mux.HandleFunc("GET /api/customers/c-1/payments", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"items":[{"id":"p-1","amount":"39.90","currency":"EUR","status":"paid"},
			{"id":"p-2","amount":"39.90","currency":"EUR","status":"refunded"}]}`)
	})
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-b.fetched:
		case <-r.Context().Done():
			return
		}
		_, _ = fmt.Fprint(w, "event: customer.updated\ndata: {\"customerId\":\"c-1\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return b, server
}

func writeConfig(t *testing.T, apiBase string) (configPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	logPath = filepath.Join(dir, "logs", "gymsync.log")
	body := fmt.Sprintf(`api_base = %q

[debounce]
customer_detail = "20ms"
payment_history = "20ms"

[log]
file = %q
level = "debug"
`, apiBase, logPath)
	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath, logPath
}

func TestWatch_PrintsStateChangesAndFollowsEvents(t *testing.T) {
	b, server := newBackend(t)
	configPath, logPath := writeConfig(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, Options{ConfigPath: configPath}, "c-1", out) }()

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, `name="Dana Lopez" plan="Annual" fee=39.90`) &&
			strings.Contains(s, "count=2 paid=39.90")
	}, 5*time.Second, 5*time.Millisecond)

	// The streamed customer.updated event triggers a silent refresh.
	require.Eventually(t, func() bool { return b.customerHits.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "customer  gen=2 status=ready")
	}, 5*time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "customer  gen=1 status=loading")
	assert.Contains(t, out.String(), "customer  gen=2 status=refreshing")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	lines, err := logtail.Read(logPath, 0)
	require.NoError(t, err)
	var messages []string
	for _, e := range logtail.ParseLines(lines) {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "watching customer")
	assert.Contains(t, messages, "fetch started")
}

func TestWatch_RequiresCustomer(t *testing.T) {
	err := Watch(context.Background(), Options{}, "  ", &syncBuffer{})
	require.Error(t, err)
}

func TestSetup_RejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_base = [\n"), 0o644))

	_, err := setup(Options{ConfigPath: path})
	require.ErrorContains(t, err, "load config")
}

func TestSetup_AppliesOverrides(t *testing.T) {
	_, server := newBackend(t)
	configPath, _ := writeConfig(t, server.URL)

	rt, err := setup(Options{ConfigPath: configPath, LogLevel: "warn", Strict: true})
	require.NoError(t, err)
	defer rt.close()

	assert.Equal(t, "warn", rt.cfg.Log.Level)
	assert.True(t, rt.cfg.Strict)
	deps := rt.deps(context.Background())
	assert.True(t, deps.Strict)
	assert.Equal(t, 20*time.Millisecond, deps.DetailDebounce)
	assert.Equal(t, time.Second, deps.ListDebounce)
}

func TestServeMetrics_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestServeMetrics_ReportsListenFailure(t *testing.T) {
	err := serveMetrics(context.Background(), "not-an-address", http.NotFoundHandler(), zap.NewNop())
	require.ErrorContains(t, err, "metrics server failed")
}
