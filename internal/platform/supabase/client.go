// Package supabase provides a thin REST client for a Supabase project:
// PostgREST row access under /rest/v1 and GoTrue auth under /auth/v1.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PostgREST error codes the data layer branches on. Everything else is
// treated as an opaque request failure.
const (
	codeNoRows          = "PGRST116"
	codeUniqueViolation = "23505"
)

var (
	// ErrNoRows marks a single-row read that matched nothing.
	ErrNoRows = errors.New("supabase: no rows")
	// ErrUniqueViolation marks an insert or update rejected by a
	// uniqueness constraint.
	ErrUniqueViolation = errors.New("supabase: unique violation")
)

// APIError is a non-2xx response from the Supabase REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d (%s) %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d %s", e.StatusCode, e.Message)
}

// Config configures the Supabase client.
type Config struct {
	ProjectURL  string
	APIKey      string
	HTTPTimeout time.Duration
}

// Client performs Supabase REST calls with the project API key. Calls
// carry the key as both apikey header and bearer token unless a
// user-scoped token is supplied.
type Client struct {
	httpClient *http.Client
	restURL    string
	authURL    string
	apiKey     string
}

// New creates a Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("supabase: project URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase: api key is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	trimmed := strings.TrimRight(cfg.ProjectURL, "/")

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		restURL:    trimmed + "/rest/v1",
		authURL:    trimmed + "/auth/v1",
		apiKey:     cfg.APIKey,
	}, nil
}

// Select performs a GET on a table with an already-encoded query string.
func (c *Client) Select(ctx context.Context, table, query string) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("supabase: table is required")
	}
	path := c.restURL + "/" + url.PathEscape(table)
	if query != "" {
		path += "?" + query
	}
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

// SelectOne performs a single-object GET. A query matching no rows
// returns ErrNoRows.
func (c *Client) SelectOne(ctx context.Context, table, query string) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("supabase: table is required")
	}
	path := c.restURL + "/" + url.PathEscape(table)
	if query != "" {
		path += "?" + query
	}
	return c.do(ctx, http.MethodGet, path, nil, map[string]string{
		"Accept": "application/vnd.pgrst.object+json",
	})
}

// Insert performs a POST insert, returning the created representation.
func (c *Client) Insert(ctx context.Context, table string, body []byte) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("supabase: table is required")
	}
	return c.do(ctx, http.MethodPost, c.restURL+"/"+url.PathEscape(table), body, map[string]string{
		"Prefer": "return=representation",
	})
}

// Update performs a PATCH against rows matched by the query, returning
// the updated representation.
func (c *Client) Update(ctx context.Context, table, query string, body []byte) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("supabase: table is required")
	}
	if query == "" {
		return nil, fmt.Errorf("supabase: refusing unfiltered update on %s", table)
	}
	path := c.restURL + "/" + url.PathEscape(table) + "?" + query
	return c.do(ctx, http.MethodPatch, path, body, map[string]string{
		"Prefer": "return=representation",
	})
}

// Delete removes rows matched by the query.
func (c *Client) Delete(ctx context.Context, table, query string) error {
	if table == "" {
		return fmt.Errorf("supabase: table is required")
	}
	if query == "" {
		return fmt.Errorf("supabase: refusing unfiltered delete on %s", table)
	}
	_, err := c.do(ctx, http.MethodDelete, c.restURL+"/"+url.PathEscape(table)+"?"+query, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	_ = json.Unmarshal(data, apiErr)

	switch apiErr.Code {
	case codeNoRows:
		return nil, fmt.Errorf("%w: %s", ErrNoRows, apiErr.Message)
	case codeUniqueViolation:
		return nil, fmt.Errorf("%w: %s", ErrUniqueViolation, apiErr.Message)
	}
	// PostgREST answers 406 without a body for some single-object misses.
	if resp.StatusCode == http.StatusNotAcceptable {
		return nil, ErrNoRows
	}
	return nil, apiErr
}
