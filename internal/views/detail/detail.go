// Package detail renders the agent inspection overlay. The system
// prompt is markdown and goes through glamour once per agent, not per
// frame.
package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const promptWrap = 72

// Model holds the overlay state.
type Model struct {
	Width  int
	Height int

	agent   *client.Agent
	metrics *client.AgentMetrics
	prompt  string
	offset  int
}

// New creates an empty detail overlay.
func New() Model {
	return Model{}
}

// SetAgent installs the agent and renders its system prompt markdown.
// Rendering happens here so View stays cheap. Refreshing the same
// agent keeps the scroll position.
func (m *Model) SetAgent(a client.Agent) {
	samePrompt := m.agent != nil && m.agent.ID == a.ID && m.agent.SystemPrompt == a.SystemPrompt
	if m.agent == nil || m.agent.ID != a.ID {
		m.metrics = nil
		m.offset = 0
	}
	m.agent = &a
	if !samePrompt {
		m.prompt = renderPrompt(a.SystemPrompt)
	}
}

// SetMetrics attaches live metrics once they arrive.
func (m *Model) SetMetrics(am *client.AgentMetrics) {
	m.metrics = am
}

// Agent returns the agent being inspected, or nil.
func (m Model) Agent() *client.Agent {
	return m.agent
}

func (m *Model) ScrollUp() {
	if m.offset > 0 {
		m.offset--
	}
}

func (m *Model) ScrollDown() {
	m.offset++
}

func renderPrompt(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(promptWrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// View renders the overlay card.
func (m Model) View() string {
	if m.agent == nil {
		return ""
	}
	a := m.agent
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string

	status := string(a.Status)
	title := lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render(a.Name)
	badge := lipgloss.NewStyle().Foreground(theme.AgentStatusColor(status)).
		Render(theme.AgentStatusGlyph(status) + " " + status)
	lines = append(lines, title+"  "+badge)

	lines = append(lines, dim.Render(fmt.Sprintf("%s · %s · temp %.1f · max %d tokens",
		a.AgentType, a.Model, a.Temperature, a.MaxTokens)))
	if len(a.Tags) > 0 {
		lines = append(lines, dim.Render("tags: ")+strings.Join(a.Tags, ", "))
	}
	if a.Description != "" {
		lines = append(lines, "")
		lines = append(lines, a.Description)
	}

	lines = append(lines, "")
	lines = append(lines, m.renderMetrics()...)

	if m.prompt != "" {
		lines = append(lines, "")
		lines = append(lines, dim.Render("System prompt"))
		lines = append(lines, strings.Split(m.prompt, "\n")...)
	}

	lines = append(lines, "")
	lines = append(lines, dim.Render("↑/↓ scroll  n new task  t tasks  e edit  d delete  esc close"))

	body := window(lines, m.offset, m.visibleRows())
	return theme.StyleBorder.Padding(1, 2).Width(promptWrap + 6).Render(body)
}

func (m Model) renderMetrics() []string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	a := m.agent

	if m.metrics == nil {
		return []string{
			fmt.Sprintf("%s %d done · %d failed · %.0f%% success",
				dim.Render("record:"), a.TasksCompleted, a.TasksFailed, a.SuccessRate),
		}
	}

	am := m.metrics
	lastActive := "never"
	if am.LastActive != nil {
		lastActive = relTime(*am.LastActive)
	}
	return []string{
		fmt.Sprintf("%s %d pending · %d running",
			dim.Render("queue: "), am.PendingTasks, am.RunningTasks),
		fmt.Sprintf("%s %d done · %d failed · %.0f%% success · %.1f%% uptime",
			dim.Render("record:"), am.TasksCompleted, am.TasksFailed, am.SuccessRate, am.Uptime),
		dim.Render("last active: ") + lastActive,
	}
}

func (m Model) visibleRows() int {
	rows := m.Height - 6
	if rows < 10 {
		rows = 10
	}
	return rows
}

// window clamps the scroll offset and joins the visible slice.
func window(lines []string, offset, rows int) string {
	if len(lines) <= rows {
		return strings.Join(lines, "\n")
	}
	maxOff := len(lines) - rows
	if offset > maxOff {
		offset = maxOff
	}
	return strings.Join(lines[offset:offset+rows], "\n")
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
