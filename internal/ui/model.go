package ui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/logtail"
	"github.com/five82/gymsync/internal/prefs"
	"github.com/five82/gymsync/internal/screens"
	"github.com/five82/gymsync/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewList View = iota
	ViewDetail
	ViewLogs
)

const (
	logTailLines = 500
	tickEvery    = 2 * time.Second
	toastFor     = 6 * time.Second
)

// Relay slots. Detail slots are shared across sessions; the session tag on
// each message tells stale ones apart.
const (
	slotList     = "list"
	slotCustomer = "customer"
	slotPayments = "payments"
	slotBgPrefix = "bg:"
)

// Options configures the console.
type Options struct {
	Context    context.Context
	Deps       screens.Deps
	ThemeName  string
	PrefsPath  string
	ListStatus string
	LogFile    string
	Logger     *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	deps      screens.Deps
	prefsPath string
	logFile   string
	log       *zap.Logger
	relay     *relay

	// UI state
	theme       Theme
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	currentView View
	prevView    View
	width       int
	height      int
	ready       bool
	showHelp    bool
	toast       string
	toastAt     time.Time

	// Customer list
	list       *livesync.ListController[gymapi.Customer]
	listState  livesync.ListState[gymapi.Customer]
	listStatus string
	table      table.Model

	// Customer detail. session increases every time a detail opens.
	detail     *screens.Detail
	session    uint64
	customer   state.SyncState[gymapi.Customer]
	payments   state.SyncState[[]gymapi.Payment]
	wizardOpen *atomic.Bool
	wizard     textinput.Model

	// Console log
	logViewport viewport.Model
	logEntries  []logtail.Entry
	logErr      error
}

// New creates the console model and its customer list controller. Nothing is
// fetched until Init runs.
func New(opts Options) (Model, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	deps := opts.Deps
	if deps.Context == nil {
		deps.Context = ctx
	}

	theme := GetTheme(opts.ThemeName)
	m := Model{
		ctx:         ctx,
		deps:        deps,
		prefsPath:   prefsPath,
		logFile:     opts.LogFile,
		log:         log,
		relay:       newRelay(),
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		currentView: ViewList,
		listStatus:  opts.ListStatus,
		table: table.New(
			table.WithColumns(customerColumns(80)),
			table.WithFocused(true),
			table.WithStyles(theme.TableStyles()),
		),
		wizard: newWizardInput(),
	}

	r := m.relay
	list, err := screens.NewCustomerList(deps, opts.ListStatus, screens.ListObserver{
		OnStateChange: func(s livesync.ListState[gymapi.Customer]) {
			r.post(slotList, listStateMsg(s))
		},
		OnBackgroundError: func(info state.ErrorInfo) {
			r.post(slotBgPrefix+screens.LabelCustomerList, backgroundErrorMsg{label: screens.LabelCustomerList, info: info})
		},
	})
	if err != nil {
		return Model{}, fmt.Errorf("open customer list: %w", err)
	}
	m.list = list
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	list := m.list
	return tea.Batch(
		m.relay.wait(m.ctx),
		m.spinner.Tick,
		loadCmd(func() error { return list.Load(livesync.Loud) }),
		tickCmd(tickEvery),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.bodyHeight())
		}
		m.ready = true
		m.resize()
		return m, nil

	case relayMsg:
		for _, inner := range msg {
			m = m.apply(inner)
		}
		return m, m.relay.wait(m.ctx)

	case listStateMsg, customerMsg, paymentsMsg, backgroundErrorMsg:
		return m.apply(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case logsMsg:
		m.logEntries = msg.entries
		m.logErr = msg.err
		m.updateLogViewport()
		return m, nil

	case loadErrMsg:
		m.setToast(msg.err.Error())
		return m, nil
	}

	return m, nil
}

// apply folds one controller notification into the model.
func (m Model) apply(msg tea.Msg) Model {
	switch msg := msg.(type) {
	case listStateMsg:
		m.listState = livesync.ListState[gymapi.Customer](msg)
		m.updateTable()

	case customerMsg:
		if m.detail != nil && msg.session == m.session {
			m.customer = msg.state
		}

	case paymentsMsg:
		if m.detail != nil && msg.session == m.session {
			m.payments = msg.state
		}

	case backgroundErrorMsg:
		if msg.session != 0 && (m.detail == nil || msg.session != m.session) {
			return m
		}
		m.setToast(fmt.Sprintf("%s refresh failed: %s", msg.label, msg.info.Message))
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Height(m.bodyHeight()).
		MaxHeight(m.bodyHeight()).
		Render(m.renderContent()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// Close disposes every controller the model owns.
func (m Model) Close() {
	if m.detail != nil {
		m.detail.Dispose()
	}
	if m.list != nil {
		m.list.Dispose()
	}
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.wizardActive() {
		return m.handleWizardKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(m.theme.TableStyles())
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView != ViewLogs {
			m.prevView = m.currentView
			m.currentView = ViewLogs
		}
		return m, m.refreshLogs()
	}

	switch m.currentView {
	case ViewList:
		return m.handleListKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// handleTick expires the toast and keeps the log view fresh.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(tickEvery)}
	if m.toast != "" && now.Sub(m.toastAt) >= toastFor {
		m.toast = ""
	}
	if m.currentView == ViewLogs {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) setToast(text string) {
	m.toast = text
	m.toastAt = time.Now()
}

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, ListStatus: m.listStatus}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.log.Warn("save preferences failed", zap.Error(err))
	}
}

func (m Model) bodyHeight() int {
	return max(m.height-2, 1)
}

func (m *Model) resize() {
	m.table.SetColumns(customerColumns(m.width))
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(m.bodyHeight()-2, 3))
	m.logViewport.Width = m.width
	m.logViewport.Height = m.bodyHeight()
	m.help.Width = m.width
}

// renderHeader renders the top bar: logo, screen title and sync status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	parts := []string{styles.Logo.Render("gymsync")}

	switch m.currentView {
	case ViewList:
		parts = append(parts,
			styles.Text.Render("Customers"),
			m.renderSyncStatus(m.listState.Status, m.listState.BackgroundFailures))
	case ViewDetail:
		title := "Customer"
		if m.customer.HasValue {
			title = m.customer.Value.FullName()
		}
		parts = append(parts,
			styles.Text.Render(title),
			m.renderSyncStatus(m.customer.Status, m.customer.BackgroundFailures))
	case ViewLogs:
		parts = append(parts, styles.Text.Render("Console log"))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderSyncStatus shows what the active controller is doing.
func (m Model) renderSyncStatus(status state.Status, backgroundFailures int) string {
	styles := m.theme.Styles()
	var out string
	switch status {
	case state.StatusLoading:
		out = m.spinner.View() + " " + styles.InfoText.Render("loading")
	case state.StatusRefreshing:
		out = m.spinner.View() + " " + styles.MutedText.Render("refreshing")
	case state.StatusError:
		out = styles.DangerText.Render("error")
	case state.StatusReady:
		out = styles.SuccessText.Render("live")
	default:
		out = styles.FaintText.Render("idle")
	}
	if backgroundFailures > 0 {
		out += "  " + styles.WarningText.Render(fmt.Sprintf("%d background failures", backgroundFailures))
	}
	return out
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.renderList()
	case ViewDetail:
		return m.renderDetail()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.toast != "" {
		return styles.Footer.Width(m.width).Render(styles.WarningText.Render(m.toast))
	}
	return styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	h := m.help
	h.ShowAll = true

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	b.WriteString(h.View(m.keys))

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// renderLoadProblem renders the placeholder for a screen that has no value
// yet: a spinner while loading, or the loud error.
func (m Model) renderLoadProblem(what string, status state.Status, lastErr *state.ErrorInfo) string {
	styles := m.theme.Styles()
	if status == state.StatusError && lastErr != nil {
		return styles.DangerText.Render(fmt.Sprintf("Could not load %s: %s", what, lastErr.Message)) +
			"\n" + styles.MutedText.Render("Press r to retry.")
	}
	return m.spinner.View() + " " + styles.MutedText.Render(fmt.Sprintf("Loading %s...", what))
}

// Messages

type tickMsg time.Time

type listStateMsg livesync.ListState[gymapi.Customer]

type customerMsg struct {
	session uint64
	state   state.SyncState[gymapi.Customer]
}

type paymentsMsg struct {
	session uint64
	state   state.SyncState[[]gymapi.Payment]
}

// backgroundErrorMsg reports a failed silent refresh. session is zero for
// the customer list.
type backgroundErrorMsg struct {
	session uint64
	label   string
	info    state.ErrorInfo
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

type loadErrMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadCmd(load func() error) tea.Cmd {
	return func() tea.Msg {
		if err := load(); err != nil {
			return loadErrMsg{err: err}
		}
		return nil
	}
}

// Run starts the console and blocks until the user quits or ctx ends. Every
// controller is disposed before Run returns.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	stop := context.AfterFunc(m.ctx, p.Quit)
	defer stop()

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	}
	return err
}
