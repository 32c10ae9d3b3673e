// Package rest implements the resource and auth contracts against a generic
// authenticated REST backend: bearer-token auth, pagination via query
// parameters, JSON bodies.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
)

// TokenSource supplies the bearer token for authenticated calls. The session
// store satisfies it.
type TokenSource interface {
	AccessToken() string
}

// Client talks to the REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	// onAuthRejected runs when any request comes back 401, before the error
	// is returned: the session must be cleared and the UI routed to login.
	onAuthRejected func()
	logger         *zap.Logger
}

// NewClient creates a REST client. baseURL should include any path prefix
// (e.g. "https://backend.example.com/api/v1").
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		logger: logger,
	}
}

// SetAuthRejectedHook installs the 401 handler. Typically wired to
// auth.Manager.OnAuthRejected at composition time.
func (c *Client) SetAuthRejectedHook(fn func()) {
	c.onAuthRejected = fn
}

// buildURL joins the endpoint onto the base URL and appends non-empty query
// parameters.
func (c *Client) buildURL(endpoint string, params url.Values) string {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// do issues a request with auth headers and decodes the JSON response into
// out (which may be nil for empty responses).
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(endpoint, params), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// handleResponse applies the shared response contract: 401 clears the
// session and surfaces as ErrUnauthorized, 404 as ErrNotFound, 204 as a
// successful empty body, other non-2xx as a typed APIError.
func (c *Client) handleResponse(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onAuthRejected != nil {
			c.onAuthRejected()
		}
		return apperrors.ErrUnauthorized

	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound

	case resp.StatusCode == http.StatusNoContent:
		return nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &apperrors.APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Detail
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// download issues a GET and returns the raw body bytes.
func (c *Client) download(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(endpoint, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleResponse(resp, nil); err != nil {
		return nil, err
	}
	// handleResponse leaves the body unread for 2xx with a nil out.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}
	return data, nil
}
