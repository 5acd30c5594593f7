// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package engineerr declares the sentinel error kinds surfaced by the
// assignment engine (catalog, persistence, selection, round state
// machine, admin ops). Callers match with errors.Is; user-facing text
// is rendered by the session router, not by the engine itself.
package engineerr

import "errors"

var (
	// ErrNotFound is returned when a lookup id/name does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when add_member would collide on id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidID is returned when add_member is given an id that is
	// not E.164 digit form.
	ErrInvalidID = errors.New("invalid id")

	// ErrUnauthorized is returned when a non-admin attempts an admin command.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRoundInProgress is returned by START_ROUND when pending is
	// non-empty and the round was not canceled.
	ErrRoundInProgress = errors.New("round in progress")

	// ErrNoPendingOffer is returned by ACCEPT/REJECT when the sender has
	// no pending offer.
	ErrNoPendingOffer = errors.New("no pending offer")

	// ErrNoCandidateAvailable is returned by the selection engine when
	// the eligible pool is empty.
	ErrNoCandidateAvailable = errors.New("no candidate available")

	// ErrMemberBusy is returned by remove_member when the member holds a
	// pending or accepted role in the current round.
	ErrMemberBusy = errors.New("member busy")

	// ErrCorruptState is returned when a persisted JSON file fails to
	// decode. It is fatal for the affected tenant.
	ErrCorruptState = errors.New("corrupt state")

	// ErrTransport wraps a failure from the outbound gateway capability.
	ErrTransport = errors.New("transport error")
)
