// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// ClubClient provides read access to per-club round state.
type ClubClient struct {
	c *Client
}

// RoundStatus is one club's current round state as reported by the API.
type RoundStatus struct {
	// ClubID is the club this status belongs to.
	ClubID string `json:"club_id"`

	// Round is the current round number (0 before the first round).
	Round int `json:"round"`

	// Canceled reports whether the current round was canceled.
	Canceled bool `json:"canceled"`

	// Pending maps role name to the candidate's display name.
	Pending map[string]string `json:"pending"`

	// Accepted maps role name to the accepting member's display name.
	Accepted map[string]string `json:"accepted"`

	// Unassigned lists roles with no candidate this round.
	Unassigned []string `json:"unassigned"`

	// LastSummary is the most recent fully-resolved round summary.
	LastSummary string `json:"last_summary,omitempty"`
}

// Status returns the round status for one club.
func (cc *ClubClient) Status(ctx context.Context, clubID string) (*RoundStatus, error) {
	data, err := cc.c.get(ctx, fmt.Sprintf("/api/v1/clubs/%s/status", url.PathEscape(clubID)))
	if err != nil {
		return nil, err
	}

	var status RoundStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}
