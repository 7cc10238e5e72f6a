// Package agents renders the agent roster: a fixed-column table with
// status filter cycling, text search, and pagination.
package agents

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const (
	colStatus  = 10
	colName    = 22
	colType    = 15
	colModel   = 18
	colTasks   = 13
	colSuccess = 9
)

// statusCycle is the filter order for the f key; empty means all.
var statusCycle = []client.AgentStatus{
	"",
	client.AgentActive,
	client.AgentInactive,
	client.AgentTraining,
	client.AgentError,
	client.AgentPaused,
}

// Model holds the agents view state.
type Model struct {
	Width    int
	Height   int
	Loading  bool
	PageSize int

	list   *client.AgentList
	cursor int

	page         int
	statusFilter client.AgentStatus
	search       textinput.Model
	searching    bool
}

// New creates an agents view.
func New(pageSize int) Model {
	ti := textinput.New()
	ti.Placeholder = "search agents"
	ti.CharLimit = 64
	ti.Width = 30
	return Model{PageSize: pageSize, page: 1, search: ti}
}

// Filter returns the query matching the view's current controls.
func (m Model) Filter() client.AgentFilter {
	return client.AgentFilter{
		Page:     m.page,
		PageSize: m.PageSize,
		Status:   m.statusFilter,
		Search:   strings.TrimSpace(m.search.Value()),
	}
}

// SetList installs a fetched page and clamps the cursor.
func (m *Model) SetList(list *client.AgentList) {
	m.list = list
	m.Loading = false
	if list == nil || len(list.Agents) == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= len(list.Agents) {
		m.cursor = len(list.Agents) - 1
	}
}

// Selected returns the agent under the cursor, or nil.
func (m Model) Selected() *client.Agent {
	if m.list == nil || m.cursor >= len(m.list.Agents) {
		return nil
	}
	a := m.list.Agents[m.cursor]
	return &a
}

func (m *Model) CursorUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *Model) CursorDown() {
	if m.list != nil && m.cursor < len(m.list.Agents)-1 {
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

// StartSearch focuses the search input.
func (m *Model) StartSearch() tea.Cmd {
	m.searching = true
	return m.search.Focus()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searching
}

// UpdateSearch feeds a message to the focused search input. Enter and
// esc leave search mode; enter reports that the filter changed.
func (m *Model) UpdateSearch(msg tea.Msg) (changed bool, cmd tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			m.page = 1
			m.cursor = 0
			return true, nil
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.page = 1
			return true, nil
		}
	}
	m.search, cmd = m.search.Update(msg)
	return false, cmd
}

// View renders the table.
func (m Model) View() string {
	width := m.Width
	if width < 60 {
		width = 60
	}

	var lines []string
	lines = append(lines, m.renderControls())

	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	header := fmt.Sprintf("  %-*s %-*s %-*s %-*s %*s %*s",
		colStatus, "Status",
		colName, "Name",
		colType, "Type",
		colModel, "Model",
		colTasks, "Done/Failed",
		colSuccess, "Success",
	)
	lines = append(lines, dim.Render(header))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", min(width-4, colStatus+colName+colType+colModel+colTasks+colSuccess+5))))

	switch {
	case m.Loading && m.list == nil:
		lines = append(lines, theme.StyleDimmed.Render("  Loading agents..."))
	case m.list == nil || len(m.list.Agents) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  No agents match"))
	default:
		for i, a := range m.list.Agents {
			lines = append(lines, m.renderRow(i, a))
		}
		lines = append(lines, dim.Render(fmt.Sprintf("  page %d/%d  %d agents",
			m.list.Page, max(m.list.TotalPages, 1), m.list.Total)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderControls() string {
	filter := "all"
	if m.statusFilter != "" {
		filter = string(m.statusFilter)
	}
	parts := []string{
		theme.StyleDimmed.Render("filter: ") +
			lipgloss.NewStyle().Foreground(theme.AgentStatusColor(string(m.statusFilter))).Render(filter),
	}
	if m.searching {
		parts = append(parts, m.search.View())
	} else if v := m.search.Value(); v != "" {
		parts = append(parts, theme.StyleDimmed.Render("search: ")+v)
	}
	return "  " + strings.Join(parts, "   ")
}

func (m Model) renderRow(i int, a client.Agent) string {
	prefix := "  "
	if i == m.cursor {
		prefix = "> "
	}

	status := string(a.Status)
	statusStr := lipgloss.NewStyle().Foreground(theme.AgentStatusColor(status)).
		Width(colStatus).Render(theme.AgentStatusGlyph(status) + " " + status)

	name := a.Name
	if len(name) > colName-1 {
		name = name[:colName-2] + "…"
	}
	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colName)
	if i == m.cursor {
		nameStyle = nameStyle.Bold(true)
	}

	typStr := lipgloss.NewStyle().Foreground(theme.AgentTypeColor(string(a.AgentType))).
		Width(colType).Render(string(a.AgentType))

	model := a.Model
	if len(model) > colModel-1 {
		model = model[:colModel-2] + "…"
	}

	tasks := fmt.Sprintf("%d/%d", a.TasksCompleted, a.TasksFailed)
	success := fmt.Sprintf("%.0f%%", a.SuccessRate)

	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	return prefix + statusStr + " " + nameStyle.Render(name) + " " + typStr + " " +
		dim.Width(colModel).Render(model) + " " +
		dim.Width(colTasks).Align(lipgloss.Right).Render(tasks) + " " +
		lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colSuccess).Align(lipgloss.Right).Render(success)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
