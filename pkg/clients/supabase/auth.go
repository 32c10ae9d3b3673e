package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/draftmill-inc/draftmill-client/pkg/auth"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// gotrueUser is the auth endpoint's user shape. Display name travels in the
// free-form metadata object.
type gotrueUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (u gotrueUser) toModel() *models.User {
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Metadata.Name,
		CreatedAt: u.CreatedAt,
	}
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

func (s gotrueSession) toModel() *models.AuthResponse {
	return &models.AuthResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         *s.User.toModel(),
	}
}

// authRequest performs one call against the auth endpoints and decodes the
// response into out.
func (c *Client) authRequest(ctx context.Context, method, path string, body any, out any) error {
	endpoint := c.baseURL + "/auth/v1" + path

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var session gotrueSession
	if err := c.authRequest(ctx, http.MethodPost, "/token?grant_type=password", payload, &session); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return session.toModel(), nil
}

// Register creates an account. The display name rides along as user
// metadata.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	var session gotrueSession
	if err := c.authRequest(ctx, http.MethodPost, "/signup", payload, &session); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return session.toModel(), nil
}

// Logout revokes the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.authRequest(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// CurrentUser resolves the session token to its user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user gotrueUser
	if err := c.authRequest(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return user.toModel(), nil
}

// RefreshSession trades a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	var session gotrueSession
	if err := c.authRequest(ctx, http.MethodPost, "/token?grant_type=refresh_token", payload, &session); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return session.toModel(), nil
}

var _ auth.API = (*Client)(nil)
