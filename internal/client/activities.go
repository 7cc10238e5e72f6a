package client

import "context"

// ListActivities fetches GET /activities with the given filter.
func (c *Client) ListActivities(ctx context.Context, f ActivityFilter) (*ActivityList, error) {
	path := "/api/v1/activities"
	if q := f.Query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out ActivityList
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
