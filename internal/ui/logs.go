package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/gymsync/internal/logtail"
)

// refreshLogs reads the tail of the console's log file off the UI goroutine.
func (m Model) refreshLogs() tea.Cmd {
	path := m.logFile
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logsMsg{entries: logtail.ParseLines(lines), err: err}
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = m.prevView
		if m.currentView == ViewDetail && m.detail == nil {
			m.currentView = ViewList
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.refreshLogs()
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

// updateLogViewport re-renders the log entries, staying pinned to the bottom
// when the user has not scrolled up.
func (m *Model) updateLogViewport() {
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(m.renderLogLines())
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogLines() string {
	styles := m.theme.Styles()
	if m.logErr != nil {
		return styles.DangerText.Render("Could not read log: " + m.logErr.Error())
	}
	if len(m.logEntries) == 0 {
		return styles.MutedText.Render("No log entries yet.")
	}
	lines := make([]string, 0, len(m.logEntries))
	for _, e := range m.logEntries {
		lines = append(lines, m.levelStyle(e.Level).Render(e.Format()))
	}
	return strings.Join(lines, "\n")
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}

func (m Model) renderLogs() string {
	if m.logFile == "" {
		return m.theme.Styles().MutedText.Render("Logging to a file is disabled.")
	}
	return m.logViewport.View()
}
