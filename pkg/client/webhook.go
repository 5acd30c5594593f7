// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// WebhookClient injects inbound events into the bot, bypassing the
// messaging gateway. Useful for local testing and operational tooling.
type WebhookClient struct {
	c *Client
}

// DeliveryResult reports what an injected event produced.
type DeliveryResult struct {
	// Queued is the number of outbound messages the event produced.
	Queued int `json:"queued"`

	// Failed is the number of outbound sends that failed.
	Failed int `json:"failed"`
}

// Send injects one inbound event as if the gateway had delivered it.
func (wc *WebhookClient) Send(ctx context.Context, senderID, text string) (*DeliveryResult, error) {
	data, err := wc.c.postJSON(ctx, "/webhook", map[string]string{
		"sender_id": senderID,
		"text":      text,
	})
	if err != nil {
		return nil, err
	}

	var result DeliveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}
