// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// HTTPSender delivers messages by POSTing to the gateway's send
// endpoint with a bearer credential. It bounds each send by the
// configured timeout; a timeout surfaces as a transport error and never
// rolls back the state transition that queued the message.
type HTTPSender struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPSender creates a sender for the given endpoint.
func NewHTTPSender(url, token string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
		url:    url,
		token:  token,
	}
}

// Send posts one message to the gateway.
func (s *HTTPSender) Send(ctx context.Context, destinationID, text string) error {
	body, err := json.Marshal(map[string]string{
		"to":   destinationID,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway send: status %d", resp.StatusCode)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used when no
// gateway URL is configured, so the bot can run locally end to end.
type LogSender struct{}

// Send logs the message.
func (LogSender) Send(ctx context.Context, destinationID, text string) error {
	log.Printf("outbound -> %s: %s", destinationID, text)
	return nil
}
