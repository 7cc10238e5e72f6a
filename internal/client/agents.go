package client

import "context"

// ListAgents fetches GET /agents with the given filter.
func (c *Client) ListAgents(ctx context.Context, f AgentFilter) (*AgentList, error) {
	path := "/api/v1/agents"
	if q := f.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out AgentList
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAgent fetches GET /agents/{id}.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	if err := c.get(ctx, "/api/v1/agents/"+id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAgent sends POST /agents.
func (c *Client) CreateAgent(ctx context.Context, in AgentCreate) (*Agent, error) {
	var a Agent
	if err := c.post(ctx, "/api/v1/agents", in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAgent sends PUT /agents/{id}.
func (c *Client) UpdateAgent(ctx context.Context, id string, in AgentUpdate) (*Agent, error) {
	var a Agent
	if err := c.put(ctx, "/api/v1/agents/"+id, in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAgentStatus sends PATCH /agents/{id}/status.
func (c *Client) UpdateAgentStatus(ctx context.Context, id string, status AgentStatus) (*Agent, error) {
	body := map[string]AgentStatus{"status": status}
	var a Agent
	if err := c.patch(ctx, "/api/v1/agents/"+id+"/status", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAgent sends DELETE /agents/{id}.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.del(ctx, "/api/v1/agents/"+id)
}
