package client

import "context"

// GetDashboardMetrics fetches GET /metrics/dashboard.
func (c *Client) GetDashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	var m DashboardMetrics
	if err := c.get(ctx, "/api/v1/metrics/dashboard", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetAgentMetrics fetches GET /metrics/agent/{id}.
func (c *Client) GetAgentMetrics(ctx context.Context, agentID string) (*AgentMetrics, error) {
	var m AgentMetrics
	if err := c.get(ctx, "/api/v1/metrics/agent/"+agentID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMemoryMetrics fetches GET /metrics/memory.
func (c *Client) GetMemoryMetrics(ctx context.Context) (*MemoryMetrics, error) {
	var m MemoryMetrics
	if err := c.get(ctx, "/api/v1/metrics/memory", &m); err != nil {
		return nil, err
	}
	return &m, nil
}
