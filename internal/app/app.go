package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/gymsync/internal/config"
	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/prefs"
	"github.com/five82/gymsync/internal/realtime"
	"github.com/five82/gymsync/internal/screens"
	"github.com/five82/gymsync/internal/telemetry"
	"github.com/five82/gymsync/internal/ui"
)

const metricsShutdownTimeout = 5 * time.Second

// Options configure the gymsync application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/gymsync/prefs.toml
	LogLevel   string // overrides log.level when set
	Strict     bool   // forces strict mode regardless of config
}

// runtime is the wired dependency graph shared by the console and watch.
type runtime struct {
	cfg      config.Config
	log      *zap.Logger
	closeLog func()
	metrics  *telemetry.Metrics
	diag     *telemetry.Diagnostics
	client   *gymapi.Client
	hub      *realtime.Hub
	feed     *realtime.Feed
}

func setup(opts Options) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Strict {
		cfg.Strict = true
	}

	log, closeLog, err := telemetry.NewLogger(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	client, err := gymapi.NewClient(cfg.APIBase)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	hub := realtime.NewHub(log)
	feed, err := realtime.NewFeed(client.EndpointURL(cfg.EventsPath), hub, realtime.FeedOptions{
		Logger:  log,
		OnEvent: metrics.IncFeedEvent,
	})
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init event feed: %w", err)
	}

	log.Info("gymsync starting",
		zap.String("api_base", client.BaseURL()),
		zap.String("events_path", cfg.EventsPath),
		zap.Bool("strict", cfg.Strict),
	)
	return &runtime{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		metrics:  metrics,
		diag:     telemetry.NewDiagnostics(log, metrics),
		client:   client,
		hub:      hub,
		feed:     feed,
	}, nil
}

func (rt *runtime) close() {
	rt.log.Info("gymsync stopped")
	rt.closeLog()
}

// deps returns the screen dependencies bound to ctx.
func (rt *runtime) deps(ctx context.Context) screens.Deps {
	return screens.Deps{
		Source:           rt.client,
		Events:           rt.hub,
		Diagnostics:      rt.diag,
		Context:          ctx,
		ListDebounce:     rt.cfg.Debounce.CustomerList,
		DetailDebounce:   rt.cfg.Debounce.CustomerDetail,
		PaymentsDebounce: rt.cfg.Debounce.PaymentHistory,
		BranchID:         rt.cfg.BranchID,
		PageSize:         rt.cfg.PageSize,
		Strict:           rt.cfg.Strict,
	}
}

// startBackground runs the event feed and, when configured, the metrics
// endpoint on g.
func (rt *runtime) startBackground(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return rt.feed.Run(ctx) })
	if bind := rt.cfg.Metrics.Bind; bind != "" {
		g.Go(func() error { return serveMetrics(ctx, bind, rt.metrics.Handler(), rt.log) })
	}
}

// Run boots the console and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	rt.startBackground(ctx, g)

	g.Go(func() error {
		// Quitting the console stops everything else.
		defer cancel()
		return ui.Run(ui.Options{
			Context:    ctx,
			Deps:       rt.deps(ctx),
			ThemeName:  userPrefs.Theme,
			PrefsPath:  opts.PrefsPath,
			ListStatus: userPrefs.ListStatus,
			LogFile:    rt.cfg.Log.File,
			Logger:     rt.log,
		})
	})
	return g.Wait()
}

// serveMetrics serves the Prometheus handler on bind until ctx ends.
func serveMetrics(ctx context.Context, bind string, handler http.Handler, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics endpoint listening", zap.String("bind", bind))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
