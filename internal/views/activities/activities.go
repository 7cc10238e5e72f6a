// Package activities renders the activity feed, newest first.
package activities

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

// Model holds the feed view state.
type Model struct {
	Width    int
	Height   int
	Loading  bool
	PageSize int

	list   *client.ActivityList
	offset int
	page   int
}

// New creates an activities view.
func New(pageSize int) Model {
	return Model{PageSize: pageSize, page: 1}
}

// Filter returns the query for the current page.
func (m Model) Filter() client.ActivityFilter {
	return client.ActivityFilter{Page: m.page, PageSize: m.PageSize}
}

// SetList installs a fetched page.
func (m *Model) SetList(list *client.ActivityList) {
	m.list = list
	m.Loading = false
	m.offset = 0
}

// ScrollUp moves the window toward the newest entries.
func (m *Model) ScrollUp() {
	if m.offset > 0 {
		m.offset--
	}
}

// ScrollDown moves the window toward older entries.
func (m *Model) ScrollDown() {
	if m.list == nil {
		return
	}
	if m.offset < len(m.list.Activities)-m.visibleRows() {
		m.offset++
	}
}

// NextPage advances a page if one exists.
func (m *Model) NextPage() bool {
	if m.list == nil || m.page >= m.list.TotalPages {
		return false
	}
	m.page++
	return true
}

// PrevPage goes back a page if possible.
func (m *Model) PrevPage() bool {
	if m.page <= 1 {
		return false
	}
	m.page--
	return true
}

func (m Model) visibleRows() int {
	rows := m.Height - 4
	if rows < 5 {
		rows = 5
	}
	return rows
}

// View renders the feed window.
func (m Model) View() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string
	lines = append(lines, dim.Render("  Activity"))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", 72)))

	switch {
	case m.Loading && m.list == nil:
		lines = append(lines, theme.StyleDimmed.Render("  Loading activity..."))
	case m.list == nil || len(m.list.Activities) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  Nothing yet"))
	default:
		end := m.offset + m.visibleRows()
		if end > len(m.list.Activities) {
			end = len(m.list.Activities)
		}
		for _, a := range m.list.Activities[m.offset:end] {
			lines = append(lines, renderEntry(a))
		}
		lines = append(lines, dim.Render(fmt.Sprintf("  page %d/%d  %d entries",
			m.list.Page, max(m.list.TotalPages, 1), m.list.Total)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEntry(a client.Activity) string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	glyph := lipgloss.NewStyle().
		Foreground(statusColor(a.Status)).
		Render(statusGlyph(a.Status))

	title := a.Title
	if len(title) > 46 {
		title = title[:45] + "…"
	}

	line := fmt.Sprintf("  %s %s %s %s",
		dim.Width(10).Render(relTime(a.CreatedAt)),
		glyph,
		lipgloss.NewStyle().Foreground(theme.ColorBright).Width(47).Render(title),
		dim.Render(string(a.ActivityType)),
	)
	return line
}

func statusColor(s client.ActivityStatus) lipgloss.Color {
	switch s {
	case client.ActivitySuccess:
		return theme.ColorHealthy
	case client.ActivityError:
		return theme.ColorDanger
	case client.ActivityWarning:
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}

func statusGlyph(s client.ActivityStatus) string {
	switch s {
	case client.ActivitySuccess:
		return "✓"
	case client.ActivityError:
		return "✗"
	case client.ActivityWarning:
		return "!"
	default:
		return "·"
	}
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
