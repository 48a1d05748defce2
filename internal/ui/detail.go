package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/screens"
	"github.com/five82/gymsync/internal/state"
)

const (
	maxRenewalMonths = 36
	paymentRows      = 12
)

func newWizardInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "12"
	ti.CharLimit = 2
	ti.Width = 4
	ti.Validate = func(s string) error {
		for _, r := range s {
			if r < '0' || r > '9' {
				return fmt.Errorf("digits only")
			}
		}
		return nil
	}
	return ti
}

// openDetail opens the selected customer. The previous detail, if any, is
// disposed first.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	c, ok := m.selectedCustomer()
	if !ok {
		return m, nil
	}
	m.closeDetail()

	m.session++
	session := m.session
	r := m.relay
	detail, err := screens.OpenDetail(m.deps, c.ID, screens.DetailObserver{
		OnCustomer: func(s state.SyncState[gymapi.Customer]) {
			r.post(slotCustomer, customerMsg{session: session, state: s})
		},
		OnPayments: func(s state.SyncState[[]gymapi.Payment]) {
			r.post(slotPayments, paymentsMsg{session: session, state: s})
		},
		OnBackgroundError: func(label string, info state.ErrorInfo) {
			r.post(slotBgPrefix+label, backgroundErrorMsg{session: session, label: label, info: info})
		},
	})
	if err != nil {
		m.setToast(err.Error())
		return m, nil
	}

	// The renewal wizard pauses background refreshes of both halves.
	wizardOpen := new(atomic.Bool)
	detail.AddGuard(wizardOpen.Load)

	m.detail = detail
	m.wizardOpen = wizardOpen
	m.currentView = ViewDetail
	if err := detail.Load(livesync.Loud); err != nil {
		m.setToast(err.Error())
	}
	return m, nil
}

// closeDetail disposes the open detail's controllers and forgets its state.
func (m *Model) closeDetail() {
	if m.detail == nil {
		return
	}
	m.detail.Dispose()
	m.detail = nil
	m.wizardOpen = nil
	m.wizard.Blur()
	m.wizard.Reset()
	m.customer = state.SyncState[gymapi.Customer]{}
	m.payments = state.SyncState[[]gymapi.Payment]{}
}

func (m Model) wizardActive() bool {
	return m.wizardOpen != nil && m.wizardOpen.Load()
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.closeDetail()
		m.currentView = ViewList
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if err := m.detail.Load(livesync.Loud); err != nil {
			m.setToast(err.Error())
		}
		return m, nil

	case key.Matches(msg, m.keys.Renewal):
		if !m.customer.HasValue || m.customer.Value.Contract == nil {
			m.setToast("No contract to renew.")
			return m, nil
		}
		m.wizardOpen.Store(true)
		m.wizard.Reset()
		return m, m.wizard.Focus()
	}
	return m, nil
}

func (m Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.closeWizard()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		months, err := parseMonths(m.wizard.Value())
		if err != nil {
			m.setToast(err.Error())
			return m, nil
		}
		contract := m.customer.Value.Contract
		if contract == nil {
			m.closeWizard()
			return m, nil
		}
		m.setToast(fmt.Sprintf("Renewal quote for %s: %d months of %s, %s total",
			m.customer.Value.FullName(), months, contract.Plan, renewalQuote(*contract, months).StringFixed(2)))
		m.closeWizard()
		return m, nil
	}

	var cmd tea.Cmd
	m.wizard, cmd = m.wizard.Update(msg)
	return m, cmd
}

// closeWizard releases the refresh guard. Events that were skipped while it
// was held are not replayed; the next event refreshes as usual.
func (m *Model) closeWizard() {
	if m.wizardOpen != nil {
		m.wizardOpen.Store(false)
	}
	m.wizard.Blur()
}

func parseMonths(value string) (int, error) {
	months, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || months < 1 || months > maxRenewalMonths {
		return 0, fmt.Errorf("enter between 1 and %d months", maxRenewalMonths)
	}
	return months, nil
}

// renewalQuote prices months of c at its current monthly fee.
func renewalQuote(c gymapi.Contract, months int) decimal.Decimal {
	return c.MonthlyFee.Mul(decimal.NewFromInt(int64(months)))
}

func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	cs := m.customer
	if !cs.HasValue {
		return m.renderLoadProblem("customer", cs.Status, cs.LastError)
	}
	c := cs.Value

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(c.FullName()))
	b.WriteString("  ")
	b.WriteString(styles.StatusStyle(c.Status).Render(c.Status))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(strings.Join(nonEmpty(c.Email, c.Phone, c.BranchID), "  ·  ")))
	b.WriteString("\n")
	if cs.Status == state.StatusError && cs.LastError != nil {
		b.WriteString(styles.DangerText.Render("Reload failed: " + cs.LastError.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Section.Render("Contract"))
	b.WriteString("\n")
	b.WriteString(m.renderContract(c.Contract))

	b.WriteString("\n\n")
	b.WriteString(styles.Section.Render("Payments"))
	b.WriteString("\n")
	b.WriteString(m.renderPayments())

	if m.wizardActive() && c.Contract != nil {
		b.WriteString("\n\n")
		b.WriteString(m.renderWizard(*c.Contract))
	}
	return b.String()
}

func (m Model) renderContract(c *gymapi.Contract) string {
	styles := m.theme.Styles()
	if c == nil {
		return styles.MutedText.Render("No contract on file.")
	}
	lines := []string{
		styles.Text.Render(fmt.Sprintf("%s  %s/month", c.Plan, c.MonthlyFee.StringFixed(2))) +
			"  " + styles.StatusStyle(c.Status).Render(c.Status),
	}
	if end := c.ParsedEndsAt(); !end.IsZero() {
		lines = append(lines, styles.MutedText.Render(fmt.Sprintf("Ends %s (%d days left)",
			end.Format(time.DateOnly), c.DaysLeft(time.Now()))))
	}
	renew := "off"
	if c.AutoRenew {
		renew = "on"
	}
	lines = append(lines, styles.MutedText.Render("Auto-renew "+renew))
	return strings.Join(lines, "\n")
}

func (m Model) renderPayments() string {
	styles := m.theme.Styles()
	ps := m.payments
	if !ps.HasValue {
		return m.renderLoadProblem("payments", ps.Status, ps.LastError)
	}
	if len(ps.Value) == 0 {
		return styles.MutedText.Render("No payments recorded.")
	}

	var b strings.Builder
	if ps.Status == state.StatusError && ps.LastError != nil {
		b.WriteString(styles.DangerText.Render("Reload failed: " + ps.LastError.Message))
		b.WriteString("\n")
	}
	shown := ps.Value[:min(len(ps.Value), paymentRows)]
	for _, p := range shown {
		date := "-"
		if paid := p.ParsedPaidAt(); !paid.IsZero() {
			date = paid.Format(time.DateOnly)
		}
		fmt.Fprintf(&b, "%-10s  %10s %-3s  ", date, p.Amount.StringFixed(2), p.Currency)
		b.WriteString(styles.StatusStyle(p.Status).Render(p.Status))
		if p.Method != "" {
			b.WriteString("  " + styles.MutedText.Render(p.Method))
		}
		b.WriteString("\n")
	}
	if hidden := len(ps.Value) - len(shown); hidden > 0 {
		b.WriteString(styles.FaintText.Render(fmt.Sprintf("... %d older payments", hidden)))
		b.WriteString("\n")
	}
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("Paid total %s %s",
		gymapi.PaidTotal(ps.Value).StringFixed(2), ps.Value[0].Currency)))
	return b.String()
}

func (m Model) renderWizard(c gymapi.Contract) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Section.Render("Renew contract"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(fmt.Sprintf("%s at %s/month", c.Plan, c.MonthlyFee.StringFixed(2))))
	b.WriteString("\n")
	b.WriteString("Months: ")
	b.WriteString(m.wizard.View())
	b.WriteString("\n")
	if months, err := parseMonths(m.wizard.Value()); err == nil {
		b.WriteString(styles.AccentText.Render("Total " + renewalQuote(c, months).StringFixed(2)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter quote  ·  esc cancel  ·  live refresh paused"))
	return styles.Modal.Render(b.String())
}

func nonEmpty(values ...string) []string {
	return lo.Compact(lo.Map(values, func(v string, _ int) string { return strings.TrimSpace(v) }))
}
