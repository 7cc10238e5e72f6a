package cache

import "github.com/eovidiu/personal-q-tui/internal/client"

// Key layout: "<kind>:<id>" for single resources, "<kind>s:<encoded
// filter>" for list queries. List keys embed the canonical filter
// encoding so each filter combination caches independently, and a
// shared prefix lets one event invalidate every variant at once.
const (
	agentListPrefix    = "agents:"
	taskListPrefix     = "tasks:"
	activityListPrefix = "activities:"

	KeyDashboardMetrics = "metrics:dashboard"
	KeyMemoryMetrics    = "metrics:memory"
	KeyAPIKeys          = "settings:api-keys"

	agentMetricsPrefix = "metrics:agent:"
)

func AgentKey(id string) string {
	return "agent:" + id
}

func AgentListKey(f client.AgentFilter) string {
	return agentListPrefix + f.Query().Encode()
}

func TaskKey(id string) string {
	return "task:" + id
}

func TaskListKey(f client.TaskFilter) string {
	return taskListPrefix + f.Query().Encode()
}

func ActivityListKey(f client.ActivityFilter) string {
	return activityListPrefix + f.Query().Encode()
}

func AgentMetricsKey(id string) string {
	return agentMetricsPrefix + id
}

// Local mutations invalidate the same views the matching feed event
// would. The feed usually beats these, but they keep the UI honest
// when it is down.

// AgentMutated marks every agent list and the dashboard stale.
func (c *Cache) AgentMutated() {
	c.InvalidatePrefix(agentListPrefix)
	c.Invalidate(KeyDashboardMetrics)
}

// AgentRemoved drops one agent and marks dependent views stale.
func (c *Cache) AgentRemoved(id string) {
	c.Remove(AgentKey(id))
	c.InvalidatePrefix(agentListPrefix)
	c.Invalidate(KeyDashboardMetrics)
}

// TaskMutated marks task lists and the aggregates an agent's task
// activity feeds into.
func (c *Cache) TaskMutated(agentID string) {
	c.InvalidatePrefix(taskListPrefix)
	c.Invalidate(KeyDashboardMetrics)
	if agentID != "" {
		c.Invalidate(AgentMetricsKey(agentID))
	}
}
