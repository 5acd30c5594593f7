// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway declares the opaque outbound messaging capability.
// The concrete transport and its credentials live behind the Sender
// interface; this package only names the contract the rest of the
// engine programs against.
package gateway

import (
	"context"
	"fmt"

	"github.com/wingedpig/clubbot/internal/engineerr"
)

// Sender delivers a text message to one destination id. Implementations
// may block on network I/O; callers invoke Send only after releasing the
// tenant lock.
type Sender interface {
	Send(ctx context.Context, destinationID, text string) error
}

// Message is one outbound send the engine queued while holding the
// tenant lock; the caller performs the actual Send after the lock is
// released and persistence has committed.
type Message struct {
	DestinationID string
	Text          string
}

// DeliverAll sends every message via sender, collecting (not aborting
// on) individual failures. Transport failures are logged by the caller
// and reported best-effort; they never roll back the already-committed
// state transition.
func DeliverAll(ctx context.Context, sender Sender, messages []Message) []error {
	var errs []error
	for _, m := range messages {
		if err := sender.Send(ctx, m.DestinationID, m.Text); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w: %w", m.DestinationID, err, engineerr.ErrTransport))
		}
	}
	return errs
}
