// Package overview renders the dashboard: fleet metric cards, an
// animated success-rate gauge, and memory backend statistics.
package overview

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/theme"
)

const gaugeWidth = 36

// Model holds the dashboard state. The success gauge eases toward the
// reported rate with a spring instead of jumping.
type Model struct {
	Width   int
	Height  int
	Loading bool

	metrics *client.DashboardMetrics
	memory  *client.MemoryMetrics

	spring      harmonica.Spring
	gaugePos    float64
	gaugeVel    float64
	gaugeTarget float64
}

// New creates a dashboard view.
func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(30), 6.0, 0.7),
	}
}

// SetMetrics installs fetched numbers and retargets the gauge. It
// reports whether the gauge still needs animation ticks.
func (m *Model) SetMetrics(dm *client.DashboardMetrics, mm *client.MemoryMetrics) bool {
	m.Loading = false
	if dm != nil {
		m.metrics = dm
		m.gaugeTarget = dm.AvgSuccessRate
	}
	if mm != nil {
		m.memory = mm
	}
	return !m.settled()
}

// Step advances the gauge spring one frame and reports whether more
// frames are needed.
func (m *Model) Step() bool {
	m.gaugePos, m.gaugeVel = m.spring.Update(m.gaugePos, m.gaugeVel, m.gaugeTarget)
	if m.settled() {
		m.gaugePos = m.gaugeTarget
		m.gaugeVel = 0
		return false
	}
	return true
}

func (m Model) settled() bool {
	return math.Abs(m.gaugePos-m.gaugeTarget) < 0.05 && math.Abs(m.gaugeVel) < 0.05
}

// View renders the dashboard.
func (m Model) View() string {
	if m.Loading && m.metrics == nil {
		return theme.StyleDimmed.Render("  Loading dashboard...")
	}
	if m.metrics == nil {
		return theme.StyleDimmed.Render("  No metrics yet")
	}

	dm := m.metrics
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("Agents", strconv.Itoa(dm.TotalAgents), dm.Trends.AgentsChange),
		metricCard("Active", strconv.Itoa(dm.ActiveAgents), ""),
		metricCard("Tasks done", strconv.Itoa(dm.TasksCompleted), dm.Trends.TasksChange),
		metricCard("Success", fmt.Sprintf("%.1f%%", dm.AvgSuccessRate), dm.Trends.SuccessRateChange),
	)

	var sections []string
	sections = append(sections, cards)
	sections = append(sections, "")
	sections = append(sections, m.renderGauge())
	if m.memory != nil {
		sections = append(sections, "")
		sections = append(sections, m.renderMemory())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func metricCard(label, value, trend string) string {
	var b strings.Builder
	b.WriteString(theme.StyleDimmed.Render(label))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render(value))
	if trend != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TrendColor(trendDelta(trend))).Render(trend))
	}
	return theme.StyleBorder.Width(16).Padding(0, 1).Render(b.String())
}

// trendDelta extracts the signed magnitude from backend trend strings
// like "+12%" or "-3.4%" so the colour tracks direction.
func trendDelta(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (m Model) renderGauge() string {
	pos := m.gaugePos
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	filled := int(pos / 100 * gaugeWidth)

	color := theme.ColorHealthy
	switch {
	case m.gaugeTarget < 50:
		color = theme.ColorDanger
	case m.gaugeTarget < 80:
		color = theme.ColorWarning
	}

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", gaugeWidth-filled))

	return fmt.Sprintf("  %s %s %s",
		theme.StyleDimmed.Render("success rate"),
		bar,
		lipgloss.NewStyle().Foreground(theme.ColorBright).Render(fmt.Sprintf("%5.1f%%", pos)),
	)
}

func (m Model) renderMemory() string {
	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)

	var lines []string
	lines = append(lines, dim.Render("Memory")+"  "+
		lipgloss.NewStyle().Foreground(theme.ColorAccent).Render(m.memory.StorageType))

	keys := make([]string, 0, len(m.memory.MemoryStatistics))
	for k := range m.memory.MemoryStatistics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %-24s %v", k, m.memory.MemoryStatistics[k]))
	}

	return theme.StyleBorder.Padding(0, 1).Render(strings.Join(lines, "\n"))
}
