package client

import "context"

// ListAPIKeys fetches GET /settings/api-keys. Responses are masked; the
// backend never returns stored secrets.
func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var out []APIKey
	if err := c.get(ctx, "/api/v1/settings/api-keys", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertAPIKey sends POST /settings/api-keys, creating or replacing the
// record for the named service.
func (c *Client) UpsertAPIKey(ctx context.Context, in APIKeyUpsert) (*APIKey, error) {
	var k APIKey
	if err := c.post(ctx, "/api/v1/settings/api-keys", in, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// DeleteAPIKey sends DELETE /settings/api-keys/{service}.
func (c *Client) DeleteAPIKey(ctx context.Context, serviceName string) error {
	return c.del(ctx, "/api/v1/settings/api-keys/"+serviceName)
}

// TestConnection sends POST /settings/test-connection for one service.
func (c *Client) TestConnection(ctx context.Context, serviceName string) (*ConnectionTest, error) {
	body := map[string]string{"service_name": serviceName}
	var out ConnectionTest
	if err := c.post(ctx, "/api/v1/settings/test-connection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
