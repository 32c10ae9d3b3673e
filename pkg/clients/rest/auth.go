package rest

import (
	"context"
	"net/http"

	"github.com/draftmill-inc/draftmill-client/pkg/auth"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// Login exchanges credentials for a session token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the session server-side. Best effort - the auth manager
// clears local state regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// CurrentUser resolves the session's user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshSession exchanges the refresh token for a new token pair. The
// backend may omit the refresh token when it does not rotate them.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

var _ auth.API = (*Client)(nil)
