// Package tasks renders the task queue with status filtering and
// cancel/retry affordances.
package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const (
	colStatus   = 12
	colTitle    = 34
	colAgent    = 10
	colPriority = 8
	colWhen     = 12
)

var statusCycle = []client.TaskStatus{
	"",
	client.TaskPending,
	client.TaskRunning,
	client.TaskCompleted,
	client.TaskFailed,
	client.TaskCancelled,
}

// Model holds the tasks view state.
type Model struct {
	Width    int
	Height   int
	Loading  bool
	PageSize int

	list   *client.TaskList
	cursor int

	page         int
	statusFilter client.TaskStatus
	agentID      string
}

// New creates a tasks view.
func New(pageSize int) Model {
	return Model{PageSize: pageSize, page: 1}
}

// Filter returns the query matching the view's current controls.
func (m Model) Filter() client.TaskFilter {
	return client.TaskFilter{
		Page:     m.page,
		PageSize: m.PageSize,
		AgentID:  m.agentID,
		Status:   m.statusFilter,
	}
}

// SetList installs a fetched page and clamps the cursor.
func (m *Model) SetList(list *client.TaskList) {
	m.list = list
	m.Loading = false
	if list == nil || len(list.Tasks) == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= len(list.Tasks) {
		m.cursor = len(list.Tasks) - 1
	}
}

// SetAgentScope narrows the view to one agent's tasks; empty widens it.
func (m *Model) SetAgentScope(agentID string) {
	if m.agentID != agentID {
		m.agentID = agentID
		m.page = 1
		m.cursor = 0
	}
}

// AgentScope returns the agent the view is narrowed to, if any.
func (m Model) AgentScope() string {
	return m.agentID
}

// Selected returns the task under the cursor, or nil.
func (m Model) Selected() *client.Task {
	if m.list == nil || m.cursor >= len(m.list.Tasks) {
		return nil
	}
	t := m.list.Tasks[m.cursor]
	return &t
}

func (m *Model) CursorUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *Model) CursorDown() {
	if m.list != nil && m.cursor < len(m.list.Tasks)-1 {
		m.cursor++
	}
}

// CycleStatus advances the status filter and resets to page one.
func (m *Model) CycleStatus() {
	for i, s := range statusCycle {
		if s == m.statusFilter {
			m.statusFilter = statusCycle[(i+1)%len(statusCycle)]
			break
		}
	}
	m.page = 1
	m.cursor = 0
}

// NextPage advances a page if one exists.
func (m *Model) NextPage() bool {
	if m.list == nil || m.page >= m.list.TotalPages {
		return false
	}
	m.page++
	m.cursor = 0
	return true
}

// PrevPage goes back a page if possible.
func (m *Model) PrevPage() bool {
	if m.page <= 1 {
		return false
	}
	m.page--
	m.cursor = 0
	return true
}

// View renders the queue.
func (m Model) View() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string
	lines = append(lines, m.renderControls())

	header := fmt.Sprintf("  %-*s %-*s %-*s %-*s %-*s",
		colStatus, "Status",
		colTitle, "Title",
		colAgent, "Agent",
		colPriority, "Priority",
		colWhen, "Created",
	)
	lines = append(lines, dim.Render(header))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", colStatus+colTitle+colAgent+colPriority+colWhen+4)))

	switch {
	case m.Loading && m.list == nil:
		lines = append(lines, theme.StyleDimmed.Render("  Loading tasks..."))
	case m.list == nil || len(m.list.Tasks) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  No tasks match"))
	default:
		for i, t := range m.list.Tasks {
			lines = append(lines, m.renderRow(i, t))
			if i == m.cursor {
				lines = append(lines, m.renderDetail(t)...)
			}
		}
		lines = append(lines, dim.Render(fmt.Sprintf("  page %d/%d  %d tasks",
			m.list.Page, max(m.list.TotalPages, 1), m.list.Total)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderControls() string {
	filter := "all"
	if m.statusFilter != "" {
		filter = string(m.statusFilter)
	}
	s := theme.StyleDimmed.Render("filter: ") +
		lipgloss.NewStyle().Foreground(theme.TaskStatusColor(string(m.statusFilter))).Render(filter)
	if m.agentID != "" {
		s += "   " + theme.StyleDimmed.Render("agent: ") + shortID(m.agentID)
	}
	return "  " + s
}

func (m Model) renderRow(i int, t client.Task) string {
	prefix := "  "
	if i == m.cursor {
		prefix = "> "
	}

	status := string(t.Status)
	statusStr := lipgloss.NewStyle().Foreground(theme.TaskStatusColor(status)).
		Width(colStatus).Render(theme.TaskStatusGlyph(status) + " " + status)

	title := t.Title
	if len(title) > colTitle-1 {
		title = title[:colTitle-2] + "…"
	}
	titleStyle := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colTitle)
	if i == m.cursor {
		titleStyle = titleStyle.Bold(true)
	}

	prio := lipgloss.NewStyle().Foreground(theme.PriorityColor(string(t.Priority))).
		Width(colPriority).Render(string(t.Priority))

	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	return prefix + statusStr + " " + titleStyle.Render(title) + " " +
		dim.Width(colAgent).Render(shortID(t.AgentID)) + " " + prio + " " +
		dim.Width(colWhen).Render(relTime(t.CreatedAt))
}

// renderDetail expands the selected row: description, timing, retries
// and the failure message when there is one.
func (m Model) renderDetail(t client.Task) []string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string
	if t.Description != "" {
		desc := t.Description
		if len(desc) > 72 {
			desc = desc[:71] + "…"
		}
		lines = append(lines, dim.Render("    "+desc))
	}

	var facts []string
	if t.ExecutionTimeSeconds != nil {
		facts = append(facts, fmt.Sprintf("ran %ds", *t.ExecutionTimeSeconds))
	}
	if t.RetryCount > 0 {
		facts = append(facts, fmt.Sprintf("%d retries", t.RetryCount))
	}
	if t.StartedAt != nil && t.CompletedAt == nil {
		facts = append(facts, "started "+relTime(*t.StartedAt))
	}
	if t.CompletedAt != nil {
		facts = append(facts, "finished "+relTime(*t.CompletedAt))
	}
	if len(facts) > 0 {
		lines = append(lines, dim.Render("    "+strings.Join(facts, " · ")))
	}

	if t.ErrorMessage != "" {
		msg := t.ErrorMessage
		if len(msg) > 70 {
			msg = msg[:69] + "…"
		}
		lines = append(lines, theme.StyleError.Render("    ✗ "+msg))
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func relTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
