// Package settings renders integration credentials: the masked key
// list and the upsert form. Secrets are write-only; the backend only
// reports presence.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const (
	formService = iota
	formAPIKey
	formClientID
	formClientSecret
	formTenantID
	numFormFields
)

// Model holds the settings view state.
type Model struct {
	Width   int
	Height  int
	Loading bool

	keys   []client.APIKey
	cursor int

	testing    string
	testResult *client.ConnectionTest
	testErr    string

	formOpen bool
	inputs   [numFormFields]textinput.Model
	focus    int
	errMsg   string
}

// New creates a settings view.
func New() Model {
	return Model{}
}

// SetKeys installs the fetched key list.
func (m *Model) SetKeys(keys []client.APIKey) {
	m.keys = keys
	m.Loading = false
	if m.cursor >= len(keys) && len(keys) > 0 {
		m.cursor = len(keys) - 1
	}
}

// Selected returns the key under the cursor, or nil.
func (m Model) Selected() *client.APIKey {
	if m.cursor >= len(m.keys) {
		return nil
	}
	k := m.keys[m.cursor]
	return &k
}

func (m *Model) CursorUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *Model) CursorDown() {
	if m.cursor < len(m.keys)-1 {
		m.cursor++
	}
}

// SetTesting marks a service as having a probe in flight.
func (m *Model) SetTesting(service string) {
	m.testing = service
	m.testResult = nil
	m.testErr = ""
}

// SetTestResult installs the probe outcome.
func (m *Model) SetTestResult(res *client.ConnectionTest, err error) {
	m.testing = ""
	m.testResult = res
	if err != nil {
		m.testErr = err.Error()
	}
}

// OpenForm shows the upsert form, prefilled with the service name when
// editing an existing record.
func (m *Model) OpenForm(prefill *client.APIKey) tea.Cmd {
	mk := func(placeholder string, secret bool) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Width = 36
		ti.CharLimit = 512
		if secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		return ti
	}
	m.inputs[formService] = mk("service name (anthropic, slack, ...)", false)
	m.inputs[formAPIKey] = mk("api key", true)
	m.inputs[formClientID] = mk("oauth client id", false)
	m.inputs[formClientSecret] = mk("oauth client secret", true)
	m.inputs[formTenantID] = mk("tenant id", false)
	if prefill != nil {
		m.inputs[formService].SetValue(prefill.ServiceName)
	}
	m.formOpen = true
	m.focus = formService
	m.errMsg = ""
	return m.inputs[formService].Focus()
}

// FormOpen reports whether the upsert form is showing.
func (m Model) FormOpen() bool {
	return m.formOpen
}

// CloseForm discards the form without saving.
func (m *Model) CloseForm() {
	m.formOpen = false
}

// UpdateForm feeds a message to the focused input and handles focus
// movement.
func (m Model) UpdateForm(msg tea.Msg) (Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "down", "tab":
			return m.moveFocus(1), nil
		case "up", "shift+tab":
			return m.moveFocus(-1), nil
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(dir int) Model {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + dir + numFormFields) % numFormFields
	m.inputs[m.focus].Focus()
	return m
}

// SetFormError shows a failure under the form.
func (m *Model) SetFormError(msg string) {
	m.errMsg = msg
}

// SubmitForm validates and builds the upsert body. At least one
// credential field must be present.
func (m *Model) SubmitForm() (*client.APIKeyUpsert, error) {
	service := strings.TrimSpace(m.inputs[formService].Value())
	if service == "" {
		return nil, errors.New("service name is required")
	}
	up := &client.APIKeyUpsert{
		ServiceName:  service,
		APIKey:       strings.TrimSpace(m.inputs[formAPIKey].Value()),
		ClientID:     strings.TrimSpace(m.inputs[formClientID].Value()),
		ClientSecret: strings.TrimSpace(m.inputs[formClientSecret].Value()),
		TenantID:     strings.TrimSpace(m.inputs[formTenantID].Value()),
		IsActive:     true,
	}
	if up.APIKey == "" && up.ClientID == "" && up.ClientSecret == "" {
		return nil, errors.New("enter an api key or oauth credentials")
	}
	return up, nil
}

// View renders either the key list or the upsert form.
func (m Model) View() string {
	if m.formOpen {
		return m.renderForm()
	}
	return m.renderList()
}

func (m Model) renderList() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string
	lines = append(lines, dim.Render("  Integrations"))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", 64)))

	switch {
	case m.Loading && m.keys == nil:
		lines = append(lines, theme.StyleDimmed.Render("  Loading keys..."))
	case len(m.keys) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  No credentials stored. Press n to add one."))
	default:
		for i, k := range m.keys {
			lines = append(lines, m.renderKey(i, k))
		}
	}

	lines = append(lines, "")
	switch {
	case m.testing != "":
		lines = append(lines, dim.Render("  testing "+m.testing+"..."))
	case m.testErr != "":
		lines = append(lines, theme.StyleError.Render("  test failed: "+m.testErr))
	case m.testResult != nil:
		style := lipgloss.NewStyle().Foreground(theme.ColorHealthy)
		glyph := "✓"
		if !m.testResult.Success {
			style = theme.StyleError
			glyph = "✗"
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %s %s: %s",
			glyph, m.testResult.ServiceName, m.testResult.Message)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderKey(i int, k client.APIKey) string {
	prefix := "  "
	if i == m.cursor {
		prefix = "> "
	}

	active := lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("●")
	if !k.IsActive {
		active = theme.StyleDimmed.Render("○")
	}

	var creds []string
	if k.HasAPIKey {
		creds = append(creds, "key")
	}
	if k.HasAccessToken {
		creds = append(creds, "token")
	}
	if k.HasClientCredentials {
		creds = append(creds, "oauth")
	}
	credStr := strings.Join(creds, "+")
	if credStr == "" {
		credStr = "none"
	}

	validated := "never validated"
	if k.LastValidated != nil {
		validated = "validated " + relTime(*k.LastValidated)
	}

	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBright)
	if i == m.cursor {
		nameStyle = nameStyle.Bold(true)
	}
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	return prefix + active + " " + nameStyle.Width(16).Render(k.ServiceName) + " " +
		dim.Width(12).Render(credStr) + " " + dim.Render(validated)
}

func (m Model) renderForm() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	labels := [numFormFields]string{"Service", "API key", "Client ID", "Client secret", "Tenant ID"}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorAccent).Bold(true).Render("Store credentials"))
	lines = append(lines, "")
	for i := 0; i < numFormFields; i++ {
		style := theme.StyleDimmed
		if m.focus == i {
			style = lipgloss.NewStyle().Foreground(theme.ColorBright)
		}
		lines = append(lines, fmt.Sprintf("%s %s", style.Width(14).Render(labels[i]), m.inputs[i].View()))
	}
	lines = append(lines, "")
	if m.errMsg != "" {
		lines = append(lines, theme.StyleError.Render(m.errMsg))
	}
	lines = append(lines, dim.Render("tab/↓ next  ↑ prev  enter save  esc cancel"))

	return theme.StyleBorder.Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
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
