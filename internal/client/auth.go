package client

import (
	"context"
	"net/http"
)

// Me fetches GET /auth/me, the session-check endpoint. Cookie mode sends
// the jar's session cookie; bearer mode sends the Authorization header.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var u UserInfo
	if err := c.get(ctx, "/api/v1/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// LoginURL returns the browser entry point for the OAuth flow.
func (c *Client) LoginURL() string {
	return c.baseURL + "/api/v1/auth/login"
}

// Logout sends POST /auth/logout with the anti-forgery header the
// backend requires, sourced from the csrf_token cookie it set earlier.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	if csrf := c.CSRFToken(); csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return c.apiError(http.MethodPost, "/api/v1/auth/logout", resp)
	}
	return nil
}
