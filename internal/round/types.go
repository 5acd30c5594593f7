// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package round holds the per-club round ledger: which role is offered
// to whom, which roles have been accepted, and the per-member cycle
// mirror used for fast exclusion during selection. It is a pure data
// model; the state machine that mutates it lives in internal/engine.
package round

// PendingOffer is an outstanding offer for one role.
type PendingOffer struct {
	Candidate  string   `json:"candidate"`
	DeclinedBy []string `json:"declined_by"`
	Accepted   bool     `json:"accepted"`
}

// AcceptedRole records who accepted a role, denormalizing the member
// name so summaries can render without a catalog join.
type AcceptedRole struct {
	MemberID   string `json:"waid"`
	MemberName string `json:"name"`
}

// RoundState is one club's round ledger, persisted as state.json.
type RoundState struct {
	Round        int                      `json:"round"`
	Pending      map[string]*PendingOffer `json:"pending"`
	Accepted     map[string]*AcceptedRole `json:"accepted"`
	MembersCycle map[string][]string      `json:"members_cycle"`
	LastSummary  *string                  `json:"last_summary"`
	Canceled     bool                     `json:"canceled"`
}

// NewState returns a zero-valued RoundState with initialized maps.
// Round state is created lazily: a club has one as soon as anything
// asks for it.
func NewState() *RoundState {
	return &RoundState{
		Pending:      map[string]*PendingOffer{},
		Accepted:     map[string]*AcceptedRole{},
		MembersCycle: map[string][]string{},
	}
}

// EnsureMaps tolerates a persisted state.json with null map fields
// (e.g. "pending": null from a round that never offered anything) by
// replacing any nil map with an empty one. Callers decode into NewState
// and call this afterward.
func (s *RoundState) EnsureMaps() {
	if s.Pending == nil {
		s.Pending = map[string]*PendingOffer{}
	}
	if s.Accepted == nil {
		s.Accepted = map[string]*AcceptedRole{}
	}
	if s.MembersCycle == nil {
		s.MembersCycle = map[string][]string{}
	}
}

// PendingRoleFor returns the role name for which memberID currently
// holds an offer, or "" if none (a member holds at most one).
func (s *RoundState) PendingRoleFor(memberID string) string {
	for role, offer := range s.Pending {
		if offer.Candidate == memberID {
			return role
		}
	}
	return ""
}

// AcceptedRoleFor returns the role name memberID has been accepted
// into this round, or "" if none.
func (s *RoundState) AcceptedRoleFor(memberID string) string {
	for role, acc := range s.Accepted {
		if acc.MemberID == memberID {
			return role
		}
	}
	return ""
}

// IsBusy reports whether memberID is currently a candidate or an
// accepted holder anywhere in the round (used by remove_member's
// MemberBusy check).
func (s *RoundState) IsBusy(memberID string) bool {
	return s.PendingRoleFor(memberID) != "" || s.AcceptedRoleFor(memberID) != ""
}

// ExcludedIDs returns the set of member ids that must be excluded from
// selection for a fresh or re-selection pass: every current candidate,
// every accepted member, and (when role is non-empty) that role's
// declined_by set.
func (s *RoundState) ExcludedIDs(role string) map[string]bool {
	excluded := map[string]bool{}
	for _, offer := range s.Pending {
		excluded[offer.Candidate] = true
	}
	for _, acc := range s.Accepted {
		excluded[acc.MemberID] = true
	}
	if role != "" {
		if offer, ok := s.Pending[role]; ok {
			for _, id := range offer.DeclinedBy {
				excluded[id] = true
			}
		}
	}
	return excluded
}
