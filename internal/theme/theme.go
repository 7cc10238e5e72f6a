// Package theme provides the Lip Gloss color palette and reusable styles
// for the Personal-Q TUI. It is a leaf package with no internal imports
// to avoid import cycles; callers pass enum values as plain strings.
package theme

import "github.com/charmbracelet/lipgloss"

// Agent status colors.
var (
	ColorActive   = lipgloss.Color("#22c55e")
	ColorInactive = lipgloss.Color("#6b7280")
	ColorTraining = lipgloss.Color("#3b82f6")
	ColorErrored  = lipgloss.Color("#dc2626")
	ColorPaused   = lipgloss.Color("#d97706")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// Task status colors.
var (
	ColorPending   = lipgloss.Color("#9ca3af")
	ColorRunning   = lipgloss.Color("#2563eb")
	ColorCompleted = lipgloss.Color("#16a34a")
	ColorFailed    = lipgloss.Color("#dc2626")
	ColorCancelled = lipgloss.Color("#4b5563")
)

// Agent type colors.
var (
	ColorConversational = lipgloss.Color("#a855f7")
	ColorAnalytical     = lipgloss.Color("#06b6d4")
	ColorCreative       = lipgloss.Color("#f59e0b")
	ColorAutomation     = lipgloss.Color("#10b981")
)

// Priority colors.
var (
	ColorPriorityLow    = lipgloss.Color("#6b7280")
	ColorPriorityMedium = lipgloss.Color("#3b82f6")
	ColorPriorityHigh   = lipgloss.Color("#d97706")
	ColorPriorityUrgent = lipgloss.Color("#dc2626")
)

// Feed connection colors.
var (
	ColorFeedOpen         = lipgloss.Color("#22c55e")
	ColorFeedConnecting   = lipgloss.Color("#d97706")
	ColorFeedReconnecting = lipgloss.Color("#d97706")
	ColorFeedClosed       = lipgloss.Color("#6b7280")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#a855f7")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// AgentStatusColor returns the color for an agent status string.
func AgentStatusColor(status string) lipgloss.Color {
	switch status {
	case "active":
		return ColorActive
	case "inactive":
		return ColorInactive
	case "training":
		return ColorTraining
	case "error":
		return ColorErrored
	case "paused":
		return ColorPaused
	default:
		return ColorDefault
	}
}

// TaskStatusColor returns the color for a task status string.
func TaskStatusColor(status string) lipgloss.Color {
	switch status {
	case "pending":
		return ColorPending
	case "running":
		return ColorRunning
	case "completed":
		return ColorCompleted
	case "failed":
		return ColorFailed
	case "cancelled":
		return ColorCancelled
	default:
		return ColorDefault
	}
}

// AgentTypeColor returns the color for an agent type string.
func AgentTypeColor(agentType string) lipgloss.Color {
	switch agentType {
	case "conversational":
		return ColorConversational
	case "analytical":
		return ColorAnalytical
	case "creative":
		return ColorCreative
	case "automation":
		return ColorAutomation
	default:
		return ColorDefault
	}
}

// PriorityColor returns the color for a task priority string.
func PriorityColor(priority string) lipgloss.Color {
	switch priority {
	case "low":
		return ColorPriorityLow
	case "medium":
		return ColorPriorityMedium
	case "high":
		return ColorPriorityHigh
	case "urgent":
		return ColorPriorityUrgent
	default:
		return ColorDefault
	}
}

// FeedColor returns the color for a connection state string.
func FeedColor(state string) lipgloss.Color {
	switch state {
	case "open":
		return ColorFeedOpen
	case "connecting":
		return ColorFeedConnecting
	case "reconnecting":
		return ColorFeedReconnecting
	default:
		return ColorFeedClosed
	}
}

// TrendColor returns the color for a metric delta: growth is healthy,
// decline warns, flat stays dim.
func TrendColor(delta float64) lipgloss.Color {
	switch {
	case delta > 0:
		return ColorHealthy
	case delta < 0:
		return ColorDanger
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)

// AgentStatusGlyph returns a Unicode glyph for an agent status.
func AgentStatusGlyph(status string) string {
	switch status {
	case "active":
		return "●"
	case "inactive":
		return "○"
	case "training":
		return "◎"
	case "error":
		return "✗"
	case "paused":
		return "∥"
	default:
		return "·"
	}
}

// TaskStatusGlyph returns a Unicode glyph for a task status.
func TaskStatusGlyph(status string) string {
	switch status {
	case "pending":
		return "◌"
	case "running":
		return "●>"
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	case "cancelled":
		return "⊘"
	default:
		return "·"
	}
}

// FeedGlyph returns the status-bar glyph for a connection state.
func FeedGlyph(state string) string {
	switch state {
	case "open":
		return "⇅"
	case "connecting", "reconnecting":
		return "…"
	default:
		return "⏚"
	}
}
