// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the clubbot API.
//
// clubbot serves a webhook-driven assignment bot plus a small read-only
// JSON API. This client gives typed access to that API: per-club round
// status, the round event history, and event injection for testing.
//
// Create a client pointing at your clubbot server:
//
//	c := client.New("http://localhost:8080")
//
//	// Read a club's round status
//	status, err := c.Clubs.Status(ctx, "club-centro")
//
//	// Read recent round events
//	events, err := c.Events.History(ctx, client.EventQuery{Kinds: []string{client.KindRoundStarted}})
//
// All API methods accept a context.Context for cancellation and
// timeouts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a clubbot API client. It is safe for concurrent use by
// multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Clubs provides read access to per-club round state.
	Clubs *ClubClient

	// Events provides access to the round event history.
	Events *EventClient

	// Webhook injects inbound events, mainly for testing and tooling.
	Webhook *WebhookClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a new clubbot API client with the given base URL and
// options. Any trailing slash on baseURL is removed. The default HTTP
// timeout is 30 seconds.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Clubs = &ClubClient{c: c}
	c.Events = &EventClient{c: c}
	c.Webhook = &WebhookClient{c: c}

	return c
}

// WithHTTPClient sets a custom HTTP client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// APIError represents an error response from the clubbot API. Codes
// mirror the engine's error kinds (NOT_FOUND, ROUND_IN_PROGRESS,
// MEMBER_BUSY, ...).
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// get performs a GET request to the given path.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// postJSON performs a POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// do performs an HTTP request and parses the response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse reads and parses an API response.
func (c *Client) parseResponse(resp *http.Response) (json.RawMessage, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	}

	if apiResp.Error != nil {
		return nil, apiResp.Error
	}

	return apiResp.Data, nil
}
