package app

import (
	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/client"
)

// Messages produced by the client layer callbacks (via the bridge) and
// by fetch commands. The views never talk to the network themselves;
// everything arrives here.

// AuthChangedMsg carries a fresh auth snapshot after any transition.
type AuthChangedMsg struct{ State auth.State }

// FeedStateMsg reports event feed connection transitions.
type FeedStateMsg struct{ State client.ConnState }

// CacheDirtyMsg is a coalesced wake-up: at least one cache key changed
// since the last one. The handler re-reads whatever the active view
// needs; fresh entries answer from memory.
type CacheDirtyMsg struct{}

// LoginOutcomeMsg reports the result of an OAuth callback or token
// submission.
type LoginOutcomeMsg struct{ Err error }

// AgentsLoadedMsg delivers an agents page. Key is the cache key the
// fetch ran against; results for a filter the user has already left
// are dropped.
type AgentsLoadedMsg struct {
	Key  string
	List *client.AgentList
	Err  error
}

// AgentDetailMsg delivers one agent plus its metrics for the detail
// overlay. Metrics may be nil when that call failed independently.
type AgentDetailMsg struct {
	Agent   client.Agent
	Metrics *client.AgentMetrics
	Err     error
}

// TasksLoadedMsg delivers a tasks page.
type TasksLoadedMsg struct {
	Key  string
	List *client.TaskList
	Err  error
}

// ActivitiesLoadedMsg delivers an activity feed page.
type ActivitiesLoadedMsg struct {
	Key  string
	List *client.ActivityList
	Err  error
}

// OverviewLoadedMsg delivers the dashboard aggregates.
type OverviewLoadedMsg struct {
	Metrics *client.DashboardMetrics
	Memory  *client.MemoryMetrics
	Err     error
}

// APIKeysLoadedMsg delivers the configured service credentials.
type APIKeysLoadedMsg struct {
	Keys []client.APIKey
	Err  error
}

// ConnTestMsg delivers a settings connection test outcome.
type ConnTestMsg struct {
	Service string
	Result  *client.ConnectionTest
	Err     error
}

// ActionDoneMsg reports a mutation outcome (create, update, delete,
// cancel, retry). Action is a short human label for the notice line.
type ActionDoneMsg struct {
	Action string
	Err    error
}

// gaugeTickMsg drives the overview gauge animation frames.
type gaugeTickMsg struct{}
