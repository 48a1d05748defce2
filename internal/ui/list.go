package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/screens"
	"github.com/five82/gymsync/internal/state"
)

const (
	statusColWidth = 10
	planColWidth   = 16
	endsColWidth   = 12
	branchColWidth = 10
	minNameWidth   = 16
)

func customerColumns(width int) []table.Column {
	fixed := statusColWidth + planColWidth + endsColWidth + branchColWidth
	// Each column carries one cell of padding on both sides.
	name := max(width-fixed-2*5, minNameWidth)
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Status", Width: statusColWidth},
		{Title: "Plan", Width: planColWidth},
		{Title: "Ends", Width: endsColWidth},
		{Title: "Branch", Width: branchColWidth},
	}
}

func customerRows(items []gymapi.Customer) []table.Row {
	return lo.Map(items, func(c gymapi.Customer, _ int) table.Row {
		plan, ends := "-", "-"
		if c.Contract != nil {
			plan = lo.CoalesceOrEmpty(c.Contract.Plan, "-")
			if end := c.Contract.ParsedEndsAt(); !end.IsZero() {
				ends = end.Format(time.DateOnly)
			}
		}
		return table.Row{c.FullName(), c.Status, plan, ends, lo.CoalesceOrEmpty(c.BranchID, "-")}
	})
}

// updateTable refreshes the rows from the list state, keeping the cursor in
// range.
func (m *Model) updateTable() {
	rows := customerRows(m.listState.Value.Items)
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) selectedCustomer() (gymapi.Customer, bool) {
	items := m.listState.Value.Items
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(items) {
		return gymapi.Customer{}, false
	}
	return items[idx], true
}

// handleListKey processes keyboard input for the customer list. Controller
// calls return immediately; results arrive through the relay.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp(1)
	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown(1)
	case key.Matches(msg, m.keys.NextPage):
		err = m.list.NextPage()
	case key.Matches(msg, m.keys.PrevPage):
		err = m.list.PrevPage()
	case key.Matches(msg, m.keys.CycleFilter):
		m.listStatus = screens.NextStatus(m.listStatus)
		m.savePrefs()
		err = m.list.SetFilters(screens.StatusFilter(m.listStatus))
	case key.Matches(msg, m.keys.Reload):
		err = m.list.Load(livesync.Loud)
	case key.Matches(msg, m.keys.Open):
		return m.openDetail()
	}
	if err != nil {
		m.setToast(err.Error())
	}
	return m, nil
}

func (m Model) renderList() string {
	styles := m.theme.Styles()
	st := m.listState
	if !st.HasValue {
		return m.renderLoadProblem("customers", st.Status, st.LastError)
	}

	var b strings.Builder
	if st.Status == state.StatusError && st.LastError != nil {
		b.WriteString(styles.DangerText.Render("Reload failed: " + st.LastError.Message))
		b.WriteString("\n")
	}
	if len(st.Value.Items) == 0 {
		b.WriteString(styles.MutedText.Render("No customers match this filter."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("Page %d of %d  ·  %d customers  ·  status: %s",
		st.Query.Page, max(st.Value.LastPage(), 1), st.Value.Total, filterLabel(m.listStatus))
	if !st.UpdatedAt.IsZero() {
		summary += "  ·  updated " + st.UpdatedAt.Format(time.TimeOnly)
	}
	b.WriteString(styles.MutedText.Render(summary))
	return b.String()
}

func filterLabel(status string) string {
	if status == "" {
		return "all"
	}
	return status
}
