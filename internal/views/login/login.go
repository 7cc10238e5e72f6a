// Package login renders the sign-in screen: the OAuth URL to visit, the
// local callback address, and a paste field for manual bearer tokens.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/theme"
)

// Model holds the login screen state.
type Model struct {
	Width  int
	Height int

	LoginURL     string
	CallbackAddr string
	ErrorMsg     string
	Loading      bool

	input textinput.Model
	spin  spinner.Model
}

// New creates a login screen with the token field focused.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "paste a JWT and press enter"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 4096
	ti.Width = 48
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	return Model{input: ti, spin: sp}
}

// Focus puts the cursor in the token field.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}

// SpinnerTick starts the verifying animation.
func (m Model) SpinnerTick() tea.Cmd {
	return m.spin.Tick
}

// Update feeds input and spinner messages through.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	if _, ok := msg.(spinner.TickMsg); ok && m.Loading {
		m.spin, cmd = m.spin.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// TakeToken returns the pasted token and clears the field.
func (m *Model) TakeToken() string {
	v := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	return v
}

// View renders the sign-in screen.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Foreground(theme.ColorAccent).
		Bold(true).
		Render("Personal-Q")

	var lines []string
	lines = append(lines, title)
	lines = append(lines, theme.StyleDimmed.Render("AI agent manager"))
	lines = append(lines, "")

	if m.LoginURL != "" {
		lines = append(lines, theme.StyleDimmed.Render("Sign in with Google:"))
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorBright).Underline(true).Render(m.LoginURL))
		if m.CallbackAddr != "" {
			lines = append(lines, theme.StyleDimmed.Render("waiting for the browser on "+m.CallbackAddr))
		}
		lines = append(lines, "")
	}

	lines = append(lines, theme.StyleDimmed.Render("or paste a token:"))
	lines = append(lines, m.input.View())
	lines = append(lines, "")

	switch {
	case m.Loading:
		lines = append(lines, m.spin.View()+" verifying session...")
	case m.ErrorMsg != "":
		lines = append(lines, theme.StyleError.Render(m.ErrorMsg))
	default:
		lines = append(lines, "")
	}

	lines = append(lines, "")
	lines = append(lines, theme.StyleDimmed.Render("ctrl+o open browser  enter submit token  ctrl+c quit"))

	card := theme.StyleBorder.Padding(1, 3).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)

	if m.Width > 0 && m.Height > 0 {
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, card)
	}
	return card
}
