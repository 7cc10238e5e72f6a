package client

import "context"

// ListTasks fetches GET /tasks with the given filter.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (*TaskList, error) {
	path := "/api/v1/tasks"
	if q := f.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out TaskList
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches GET /tasks/{id}.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.get(ctx, "/api/v1/tasks/"+id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask sends POST /tasks.
func (c *Client) CreateTask(ctx context.Context, in TaskCreate) (*Task, error) {
	var t Task
	if err := c.post(ctx, "/api/v1/tasks", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask sends PATCH /tasks/{id}.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskUpdate) (*Task, error) {
	var t Task
	if err := c.patch(ctx, "/api/v1/tasks/"+id, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CancelTask sends POST /tasks/{id}/cancel. Only pending and running
// tasks are cancellable; the backend answers 400 otherwise.
func (c *Client) CancelTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.post(ctx, "/api/v1/tasks/"+id+"/cancel", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// RetryTask sends POST /tasks/{id}/retry, re-queueing a failed or
// cancelled task.
func (c *Client) RetryTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.post(ctx, "/api/v1/tasks/"+id+"/retry", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
