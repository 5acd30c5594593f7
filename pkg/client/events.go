// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// EventClient provides access to the round event history.
type EventClient struct {
	c *Client
}

// Event is one committed round-state transition. Seq is strictly
// increasing; a monitor that missed deliveries re-syncs by passing its
// last seen Seq as AfterSeq.
type Event struct {
	Seq        int64     `json:"seq"`
	Kind       string    `json:"kind"`
	ClubID     string    `json:"club_id"`
	Round      int       `json:"round"`
	Role       string    `json:"role,omitempty"`
	MemberID   string    `json:"member_id,omitempty"`
	MemberName string    `json:"member_name,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event kinds, as reported in Event.Kind.
const (
	KindRoundStarted    = "round_started"
	KindRoundCanceled   = "round_canceled"
	KindRoundReset      = "round_reset"
	KindRoundCompleted  = "round_completed"
	KindOfferMade       = "offer_made"
	KindOfferAccepted   = "offer_accepted"
	KindOfferRejected   = "offer_rejected"
	KindOfferDeferred   = "offer_deferred"
	KindRoleExhausted   = "role_exhausted"
	KindRoleNoCandidate = "role_no_candidate"
)

// EventQuery filters an event history request.
type EventQuery struct {
	// Kinds restricts results to the listed event kinds.
	Kinds []string

	// ClubID restricts results to one club.
	ClubID string

	// AfterSeq skips events up to and including this sequence number.
	AfterSeq int64

	// Limit keeps only the most recent N matches.
	Limit int
}

// History returns past events matching the query, oldest first.
func (ec *EventClient) History(ctx context.Context, q EventQuery) ([]Event, error) {
	params := url.Values{}
	for _, k := range q.Kinds {
		params.Add("kind", k)
	}
	if q.ClubID != "" {
		params.Set("club_id", q.ClubID)
	}
	if q.AfterSeq > 0 {
		params.Set("after_seq", strconv.FormatInt(q.AfterSeq, 10))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	path := "/api/v1/events"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	data, err := ec.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}
	return events, nil
}
