// Package agentform renders the create/edit agent overlay: a stack of
// text inputs plus a cycling type selector.
package agentform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

// input indices; the type selector sits between name and description
// in the focus order but is not a text input.
const (
	fieldName = iota
	fieldDescription
	fieldModel
	fieldTemperature
	fieldMaxTokens
	fieldTags
	fieldPrompt
	numFields
)

// focus positions: 0 is name, 1 is the type selector, then the rest of
// the inputs shifted by one.
const (
	posName = 0
	posType = 1
)

var agentTypes = []client.AgentType{
	client.AgentConversational,
	client.AgentAnalytical,
	client.AgentCreative,
	client.AgentAutomation,
}

// Model holds the form state.
type Model struct {
	Width  int
	Height int

	editing *client.Agent
	inputs  [numFields]textinput.Model
	typeIdx int
	focus   int
	errMsg  string
}

func newInputs() [numFields]textinput.Model {
	mk := func(placeholder string, width, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Width = width
		ti.CharLimit = limit
		return ti
	}
	var in [numFields]textinput.Model
	in[fieldName] = mk("agent name", 40, 100)
	in[fieldDescription] = mk("what this agent does", 40, 500)
	in[fieldModel] = mk("claude-sonnet-4-5", 40, 100)
	in[fieldTemperature] = mk("0.7", 8, 5)
	in[fieldMaxTokens] = mk("4096", 8, 7)
	in[fieldTags] = mk("comma, separated, tags", 40, 200)
	in[fieldPrompt] = mk("system prompt (markdown)", 40, 4000)
	return in
}

// NewCreate returns an empty form with sensible defaults filled in.
func NewCreate() Model {
	m := Model{inputs: newInputs()}
	m.inputs[fieldModel].SetValue("claude-sonnet-4-5")
	m.inputs[fieldTemperature].SetValue("0.7")
	m.inputs[fieldMaxTokens].SetValue("4096")
	m.inputs[fieldName].Focus()
	return m
}

// NewEdit returns a form prefilled from an existing agent.
func NewEdit(a client.Agent) Model {
	m := Model{inputs: newInputs(), editing: &a}
	m.inputs[fieldName].SetValue(a.Name)
	m.inputs[fieldDescription].SetValue(a.Description)
	m.inputs[fieldModel].SetValue(a.Model)
	m.inputs[fieldTemperature].SetValue(strconv.FormatFloat(a.Temperature, 'f', -1, 64))
	m.inputs[fieldMaxTokens].SetValue(strconv.Itoa(a.MaxTokens))
	m.inputs[fieldTags].SetValue(strings.Join(a.Tags, ", "))
	m.inputs[fieldPrompt].SetValue(a.SystemPrompt)
	for i, t := range agentTypes {
		if t == a.AgentType {
			m.typeIdx = i
		}
	}
	m.inputs[fieldName].Focus()
	return m
}

// Editing returns the agent being edited, or nil for a create form.
func (m Model) Editing() *client.Agent {
	return m.editing
}

// inputAt maps a focus position to its text input, or -1 for the type
// selector row.
func inputAt(pos int) int {
	switch {
	case pos == posName:
		return fieldName
	case pos == posType:
		return -1
	default:
		return pos - 1
	}
}

// Update routes keys: up/down and tab move focus, left/right cycle the
// type when selected, everything else feeds the focused input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "down", "tab":
			return m.moveFocus(1), nil
		case "up", "shift+tab":
			return m.moveFocus(-1), nil
		case "left", "right":
			if m.focus == posType {
				step := 1
				if kmsg.String() == "left" {
					step = len(agentTypes) - 1
				}
				m.typeIdx = (m.typeIdx + step) % len(agentTypes)
				return m, nil
			}
		}
	}

	if idx := inputAt(m.focus); idx >= 0 {
		var cmd tea.Cmd
		m.inputs[idx], cmd = m.inputs[idx].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) moveFocus(dir int) Model {
	if idx := inputAt(m.focus); idx >= 0 {
		m.inputs[idx].Blur()
	}
	total := numFields + 1
	m.focus = (m.focus + dir + total) % total
	if idx := inputAt(m.focus); idx >= 0 {
		m.inputs[idx].Focus()
	}
	return m
}

// SetError shows a validation or request failure under the form.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
}

// Submit validates the form. Exactly one of create or update is
// non-nil on success, depending on whether the form was prefilled.
func (m *Model) Submit() (*client.AgentCreate, *client.AgentUpdate, error) {
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	if name == "" {
		return nil, nil, errors.New("name is required")
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[fieldTemperature].Value()), 64)
	if err != nil || temp < 0 || temp > 2 {
		return nil, nil, errors.New("temperature must be between 0 and 2")
	}
	maxTokens, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldMaxTokens].Value()))
	if err != nil || maxTokens <= 0 {
		return nil, nil, errors.New("max tokens must be a positive integer")
	}
	model := strings.TrimSpace(m.inputs[fieldModel].Value())
	if model == "" {
		return nil, nil, errors.New("model is required")
	}

	desc := strings.TrimSpace(m.inputs[fieldDescription].Value())
	prompt := m.inputs[fieldPrompt].Value()
	tags := parseTags(m.inputs[fieldTags].Value())
	agentType := agentTypes[m.typeIdx]

	if m.editing == nil {
		return &client.AgentCreate{
			Name:         name,
			Description:  desc,
			AgentType:    agentType,
			Model:        model,
			Temperature:  temp,
			MaxTokens:    maxTokens,
			SystemPrompt: prompt,
			Tags:         tags,
		}, nil, nil
	}
	return nil, &client.AgentUpdate{
		Name:         &name,
		Description:  &desc,
		AgentType:    &agentType,
		Model:        &model,
		Temperature:  &temp,
		MaxTokens:    &maxTokens,
		SystemPrompt: &prompt,
		Tags:         tags,
	}, nil
}

func parseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// View renders the form card.
func (m Model) View() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	title := "New agent"
	if m.editing != nil {
		title = "Edit " + m.editing.Name
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorAccent).Bold(true).Render(title))
	lines = append(lines, "")

	lines = append(lines, m.renderField("Name", fieldName, posName))
	lines = append(lines, m.renderTypeRow())
	lines = append(lines, m.renderField("Description", fieldDescription, 2))
	lines = append(lines, m.renderField("Model", fieldModel, 3))
	lines = append(lines, m.renderField("Temperature", fieldTemperature, 4))
	lines = append(lines, m.renderField("Max tokens", fieldMaxTokens, 5))
	lines = append(lines, m.renderField("Tags", fieldTags, 6))
	lines = append(lines, m.renderField("System prompt", fieldPrompt, 7))

	lines = append(lines, "")
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(m.errMsg))
	}
	lines = append(lines, dim.Render("tab/↓ next  ↑ prev  ←/→ type  enter save  esc cancel"))

	return theme.StyleBorder.Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}

func (m Model) renderField(label string, idx, pos int) string {
	style := theme.StyleDimmed
	if m.focus == pos {
		style = lipgloss.NewStyle().Foreground(theme.ColorBright)
	}
	return fmt.Sprintf("%s %s", style.Width(14).Render(label), m.inputs[idx].View())
}

func (m Model) renderTypeRow() string {
	style := theme.StyleDimmed
	if m.focus == posType {
		style = lipgloss.NewStyle().Foreground(theme.ColorBright)
	}
	t := agentTypes[m.typeIdx]
	val := lipgloss.NewStyle().Foreground(theme.AgentTypeColor(string(t))).Render("◂ " + string(t) + " ▸")
	return fmt.Sprintf("%s %s", style.Width(14).Render("Type"), val)
}
