// Package taskform renders the new-task overlay.
package taskform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const (
	fieldAgent = iota
	fieldTitle
	fieldDescription
	numFields
)

// priority selector position in the focus order, after the inputs.
const posPriority = numFields

var priorities = []client.TaskPriority{
	client.PriorityLow,
	client.PriorityMedium,
	client.PriorityHigh,
	client.PriorityUrgent,
}

// Model holds the form state.
type Model struct {
	Width  int
	Height int

	inputs  [numFields]textinput.Model
	prioIdx int
	focus   int
	errMsg  string
}

// New returns a task form. A non-empty agentID prefills the target
// agent and moves focus straight to the title.
func New(agentID string) Model {
	mk := func(placeholder string, width, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Width = width
		ti.CharLimit = limit
		return ti
	}
	var m Model
	m.inputs[fieldAgent] = mk("agent id", 40, 64)
	m.inputs[fieldTitle] = mk("what should the agent do", 40, 200)
	m.inputs[fieldDescription] = mk("details (optional)", 40, 1000)
	m.prioIdx = 1 // medium

	if agentID != "" {
		m.inputs[fieldAgent].SetValue(agentID)
		m.focus = fieldTitle
	}
	m.inputs[m.focus].Focus()
	return m
}

// Update routes keys: up/down and tab move focus, left/right cycle the
// priority when selected, everything else feeds the focused input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "down", "tab":
			return m.moveFocus(1), nil
		case "up", "shift+tab":
			return m.moveFocus(-1), nil
		case "left", "right":
			if m.focus == posPriority {
				step := 1
				if kmsg.String() == "left" {
					step = len(priorities) - 1
				}
				m.prioIdx = (m.prioIdx + step) % len(priorities)
				return m, nil
			}
		}
	}
	if m.focus < numFields {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) moveFocus(dir int) Model {
	if m.focus < numFields {
		m.inputs[m.focus].Blur()
	}
	total := numFields + 1
	m.focus = (m.focus + dir + total) % total
	if m.focus < numFields {
		m.inputs[m.focus].Focus()
	}
	return m
}

// SetError shows a validation or request failure under the form.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
}

// Submit validates and builds the create body.
func (m *Model) Submit() (*client.TaskCreate, error) {
	agentID := strings.TrimSpace(m.inputs[fieldAgent].Value())
	if agentID == "" {
		return nil, errors.New("agent id is required")
	}
	title := strings.TrimSpace(m.inputs[fieldTitle].Value())
	if title == "" {
		return nil, errors.New("title is required")
	}
	return &client.TaskCreate{
		AgentID:     agentID,
		Title:       title,
		Description: strings.TrimSpace(m.inputs[fieldDescription].Value()),
		Priority:    priorities[m.prioIdx],
	}, nil
}

// View renders the form card.
func (m Model) View() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	labels := [numFields]string{"Agent", "Title", "Description"}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorAccent).Bold(true).Render("New task"))
	lines = append(lines, "")
	for i := 0; i < numFields; i++ {
		style := theme.StyleDimmed
		if m.focus == i {
			style = lipgloss.NewStyle().Foreground(theme.ColorBright)
		}
		lines = append(lines, fmt.Sprintf("%s %s", style.Width(13).Render(labels[i]), m.inputs[i].View()))
	}

	prioStyle := theme.StyleDimmed
	if m.focus == posPriority {
		prioStyle = lipgloss.NewStyle().Foreground(theme.ColorBright)
	}
	prio := priorities[m.prioIdx]
	prioVal := lipgloss.NewStyle().Foreground(theme.PriorityColor(string(prio))).Render("◂ " + string(prio) + " ▸")
	lines = append(lines, fmt.Sprintf("%s %s", prioStyle.Width(13).Render("Priority"), prioVal))

	lines = append(lines, "")
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(m.errMsg))
	}
	lines = append(lines, dim.Render("tab/↓ next  ↑ prev  ←/→ priority  enter save  esc cancel"))

	return theme.StyleBorder.Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}
