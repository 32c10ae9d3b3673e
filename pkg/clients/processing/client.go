// Package processing talks to the report processing backend, the collaborator
// that turns a pending report row into a rendered file. Configuring it is
// optional; the rest of the system treats its absence as a normal condition.
package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
	"github.com/draftmill-inc/draftmill-client/pkg/models"
	"github.com/draftmill-inc/draftmill-client/pkg/services"
)

// TokenSource supplies the user's access token for authenticated calls.
type TokenSource interface {
	AccessToken() string
}

// Client triggers and inspects processing jobs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// NewClient creates a processing client rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		logger: logger,
	}
}

type jobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (j jobResponse) toJob() *services.ProcessingJob {
	return &services.ProcessingJob{
		JobID:   j.JobID,
		Status:  j.Status,
		Message: j.Message,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProcessingUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", apperrors.ErrProcessingUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &apperrors.APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
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

// Health probes the backend. Used at startup to log whether processing is
// reachable; failures are not fatal.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Trigger asks the backend to start rendering the given report.
func (c *Client) Trigger(ctx context.Context, reportID uuid.UUID, req models.CreateReportRequest) (*services.ProcessingJob, error) {
	var job jobResponse
	path := fmt.Sprintf("/reports/%s/generate", reportID)
	if err := c.do(ctx, http.MethodPost, path, req, &job); err != nil {
		return nil, fmt.Errorf("failed to trigger processing: %w", err)
	}
	return job.toJob(), nil
}

// Status returns the backend's view of the report's job.
func (c *Client) Status(ctx context.Context, reportID uuid.UUID) (*services.ProcessingJob, error) {
	var job jobResponse
	path := fmt.Sprintf("/reports/%s/status", reportID)
	if err := c.do(ctx, http.MethodGet, path, nil, &job); err != nil {
		return nil, fmt.Errorf("failed to fetch job status: %w", err)
	}
	return job.toJob(), nil
}

var _ services.ProcessingTrigger = (*Client)(nil)
