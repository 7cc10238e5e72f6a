// Package statusbar renders the top bar: route tabs, feed state and
// the signed-in user.
package statusbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Width     int
	Tabs      []string
	ActiveTab int
	FeedState string // "open", "connecting", "reconnecting", "closed"
	UserEmail string
	Demo      bool
}

// New creates a status bar with the given tab labels.
func New(tabs []string) Model {
	return Model{Tabs: tabs, FeedState: "closed"}
}

// View renders the bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var tabs []string
	for i, t := range m.Tabs {
		label := t
		if i == m.ActiveTab {
			tabs = append(tabs, theme.StyleSelected.Render("["+label+"]"))
		} else {
			tabs = append(tabs, theme.StyleDimmed.Render(" "+label+" "))
		}
	}
	left := strings.Join(tabs, " ")

	feed := lipgloss.NewStyle().
		Foreground(theme.FeedColor(m.FeedState)).
		Render(theme.FeedGlyph(m.FeedState) + " " + m.FeedState)

	user := m.UserEmail
	if user == "" {
		user = "not signed in"
	}
	if m.Demo {
		user += " (demo)"
	}
	right := feed + theme.StyleDimmed.Render("  ") + theme.StyleDimmed.Render(user)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	content := left + strings.Repeat(" ", gap) + right

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
