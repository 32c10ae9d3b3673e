// Package supabase implements the resource and auth contracts against a
// managed backend: PostgREST row filtering with relational expansion,
// GoTrue auth, and object storage for generated files. It presents the same
// external contract as the rest client; callers never know which is active.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/draftmill-inc/draftmill-client/pkg/apperrors"
)

// TokenSource supplies the user's access token. Unauthenticated calls fall
// back to the anon key.
type TokenSource interface {
	AccessToken() string
}

// Client talks to the managed backend.
type Client struct {
	baseURL    string
	anonKey    string
	bucket     string
	httpClient *http.Client
	tokens     TokenSource
	// onAuthRejected runs when any request comes back 401.
	onAuthRejected func()
	logger         *zap.Logger
}

// NewClient creates a managed-backend client rooted at the project URL
// (e.g. "https://abc.supabase.co").
func NewClient(baseURL, anonKey, bucket string, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		logger: logger,
	}
}

// SetAuthRejectedHook installs the 401 handler.
func (c *Client) SetAuthRejectedHook(fn func()) {
	c.onAuthRejected = fn
}

// query builds a PostgREST request against one table.
type query struct {
	table   string
	params  url.Values
	prefer  []string
	rangeLo int
	rangeHi int
	ranged  bool
}

func newQuery(table string) *query {
	return &query{table: table, params: url.Values{}, rangeLo: -1, rangeHi: -1}
}

// Select lists the columns (with optional relational expansion, e.g.
// "*,templates(name)").
func (q *query) Select(columns string) *query {
	q.params.Set("select", columns)
	return q
}

// Eq adds an equality row filter.
func (q *query) Eq(column, value string) *query {
	q.params.Add(column, "eq."+value)
	return q
}

// Gte adds an inclusive lower bound. Bounds on the same column accumulate
// rather than replace, so a date range sends both ends.
func (q *query) Gte(column, value string) *query {
	q.params.Add(column, "gte."+value)
	return q
}

// Lte adds an inclusive upper bound.
func (q *query) Lte(column, value string) *query {
	q.params.Add(column, "lte."+value)
	return q
}

// Order sets the sort column and direction.
func (q *query) Order(column string, ascending bool) *query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Range requests rows lo..hi (inclusive) and an exact server-side count.
func (q *query) Range(lo, hi int) *query {
	q.rangeLo, q.rangeHi = lo, hi
	q.ranged = true
	q.prefer = append(q.prefer, "count=exact")
	return q
}

// authHeaders sets the apikey and bearer headers.
func (c *Client) authHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	token := c.tokens.AccessToken()
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// run executes the query as a GET and decodes the row array into out.
// Returns the exact total when a range was requested, else len-based.
func (c *Client) run(ctx context.Context, q *query, out any) (int, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, q.table)
	if len(q.params) > 0 {
		endpoint += "?" + q.params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.authHeaders(req)
	if len(q.prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(q.prefer, ","))
	}
	if q.ranged {
		req.Header.Set("Range", fmt.Sprintf("%d-%d", q.rangeLo, q.rangeHi))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return 0, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return 0, fmt.Errorf("failed to decode rows: %w", err)
	}

	total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	return total, nil
}

// mutate executes a write (POST/PATCH/DELETE) with return=representation and
// decodes the affected rows into out.
func (c *Client) mutate(ctx context.Context, method, table, filter string, body any, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if filter != "" {
		endpoint += "?" + filter
	}

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
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

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
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	return nil
}

// checkStatus maps the backend's status codes onto the shared error
// taxonomy.
func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onAuthRejected != nil {
			c.onAuthRejected()
		}
		return apperrors.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return apperrors.ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &apperrors.APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	return nil
}

// parseContentRangeTotal extracts the total from a "lo-hi/total" header.
// Returns -1 when no exact count was provided.
func parseContentRangeTotal(header string) int {
	_, totalPart, found := strings.Cut(header, "/")
	if !found || totalPart == "*" {
		return -1
	}
	total, err := strconv.Atoi(totalPart)
	if err != nil {
		return -1
	}
	return total
}

// DownloadObject fetches a stored object's bytes by path from the reports
// bucket.
func (c *Client) DownloadObject(ctx context.Context, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}
