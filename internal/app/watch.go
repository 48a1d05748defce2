package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/screens"
	"github.com/five82/gymsync/internal/state"
)

// Watch opens the detail screen for customerID without a terminal UI and
// writes one line to out for every state change until ctx is cancelled.
func Watch(ctx context.Context, opts Options, customerID string, out io.Writer) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return fmt.Errorf("watch requires a customer id")
	}
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	rt.startBackground(ctx, g)

	p := &linePrinter{w: out}
	detail, err := screens.OpenDetail(rt.deps(ctx), customerID, screens.DetailObserver{
		OnCustomer: func(s state.SyncState[gymapi.Customer]) { p.println(formatCustomer(s)) },
		OnPayments: func(s state.SyncState[[]gymapi.Payment]) { p.println(formatPayments(s)) },
		OnBackgroundError: func(label string, info state.ErrorInfo) {
			p.println(fmt.Sprintf("%-9s background refresh failed: %s", shortLabel(label), info.Message))
		},
	})
	if err != nil {
		return err
	}
	defer detail.Dispose()

	rt.log.Info("watching customer", zap.String("customer", customerID))
	if err := detail.Load(livesync.Loud); err != nil {
		return err
	}

	<-ctx.Done()
	return g.Wait()
}

// linePrinter serialises writes from controller goroutines.
type linePrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *linePrinter) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, line)
}

func formatCustomer(s state.SyncState[gymapi.Customer]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-9s gen=%d status=%s", "customer", s.Generation, s.Status)
	if s.HasValue {
		fmt.Fprintf(&b, " name=%q", s.Value.FullName())
		if c := s.Value.Contract; c != nil {
			fmt.Fprintf(&b, " plan=%q fee=%s", c.Plan, c.MonthlyFee.StringFixed(2))
		}
	}
	writeProblems(&b, s.LastError, s.BackgroundFailures)
	return b.String()
}

func formatPayments(s state.SyncState[[]gymapi.Payment]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-9s gen=%d status=%s", "payments", s.Generation, s.Status)
	if s.HasValue {
		fmt.Fprintf(&b, " count=%d paid=%s", len(s.Value), gymapi.PaidTotal(s.Value).StringFixed(2))
	}
	writeProblems(&b, s.LastError, s.BackgroundFailures)
	return b.String()
}

func writeProblems(b *strings.Builder, lastErr *state.ErrorInfo, backgroundFailures int) {
	if lastErr != nil {
		fmt.Fprintf(b, " error=%q", lastErr.Message)
	}
	if backgroundFailures > 0 {
		fmt.Fprintf(b, " background_failures=%d", backgroundFailures)
	}
}

func shortLabel(label string) string {
	switch label {
	case screens.LabelCustomerDetail:
		return "customer"
	case screens.LabelPaymentHistory:
		return "payments"
	default:
		return label
	}
}
