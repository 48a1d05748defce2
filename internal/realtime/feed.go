package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tmaxmax/go-sse"
	"go.uber.org/zap"

	"github.com/five82/gymsync/internal/livesync"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
)

var errFeedClosed = errors.New("event feed closed by server")

// Publisher receives decoded events.
type Publisher interface {
	Emit(ev livesync.Event) int
}

// FeedOptions configure a Feed.
type FeedOptions struct {
	// Client must not set a Timeout; the stream stays open indefinitely.
	Client *http.Client
	Logger *zap.Logger
	// OnEvent is called after each published event, e.g. to count it.
	OnEvent func(name string)

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Feed consumes the backend's server-sent event stream and republishes every
// event on a Publisher, reconnecting with exponential backoff.
type Feed struct {
	url     string
	pub     Publisher
	client  *http.Client
	log     *zap.Logger
	onEvent func(string)
	backoff *backoff.ExponentialBackOff

	lastEventID string
}

// NewFeed builds a feed reading streamURL.
func NewFeed(streamURL string, pub Publisher, opts FeedOptions) (*Feed, error) {
	u, err := url.Parse(strings.TrimSpace(streamURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse event feed url %q: invalid", streamURL)
	}
	if pub == nil {
		return nil, fmt.Errorf("event feed requires a publisher")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	onEvent := opts.OnEvent
	if onEvent == nil {
		onEvent = func(string) {}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialBackoff
	if opts.InitialBackoff > 0 {
		b.InitialInterval = opts.InitialBackoff
	}
	b.MaxInterval = defaultMaxBackoff
	if opts.MaxBackoff > 0 {
		b.MaxInterval = opts.MaxBackoff
	}
	b.Reset()

	return &Feed{
		url:     u.String(),
		pub:     pub,
		client:  client,
		log:     log.With(zap.String("feed", u.String())),
		onEvent: onEvent,
		backoff: b,
	}, nil
}

// Run reads the stream until ctx ends. Disconnects are logged and retried;
// Run only returns once ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	for {
		connected, err := f.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			f.backoff.Reset()
		}
		wait := f.backoff.NextBackOff()
		f.log.Warn("event feed disconnected", zap.Error(err), zap.Duration("retry_in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// consume reads one connection. It reports whether the stream was opened so
// a healthy connection resets the backoff.
func (f *Feed) consume(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if f.lastEventID != "" {
		req.Header.Set("Last-Event-ID", f.lastEventID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect event feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("event feed returned status %d", resp.StatusCode)
	}
	f.log.Info("event feed connected")

	for ev, err := range sse.Read(resp.Body, nil) {
		if err != nil {
			return true, fmt.Errorf("read event feed: %w", err)
		}
		if ev.LastEventID != "" {
			f.lastEventID = ev.LastEventID
		}
		name := ev.Type
		if name == "" {
			name = "message"
		}
		n := f.pub.Emit(livesync.Event{Name: name, Payload: []byte(ev.Data)})
		f.log.Debug("event received", zap.String("event", name), zap.Int("listeners", n))
		f.onEvent(name)
	}
	return true, errFeedClosed
}
