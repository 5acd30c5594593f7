// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package engine implements the round state machine: START_ROUND,
// ACCEPT, REJECT, DEFER, CANCEL_ROUND, RESET, and STATUS.
// Every mutating command acquires the club's lock via store.ClubStore,
// mutates the in-memory catalog/round mirrors, persists, and releases
// the lock before returning the outbound messages it queued — callers
// send those messages (via the gateway) only after the call returns, so
// network latency never serializes further commands on the tenant.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/events"
	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/selection"
	"github.com/wingedpig/clubbot/internal/store"
)

// Engine runs the round state machine for one club.
type Engine struct {
	ClubID string
	store  *store.ClubStore
	admins []string
	feed   *events.Feed
}

// New creates an Engine bound to one club's store and admin list.
func New(clubID string, st *store.ClubStore, admins []string, feed *events.Feed) *Engine {
	return &Engine{ClubID: clubID, store: st, admins: admins, feed: feed}
}

// emit publishes a round transition to the monitor feed, stamping the
// club id. Emission happens after the transition has been persisted.
func (e *Engine) emit(ev events.Event) {
	if e.feed == nil {
		return
	}
	ev.ClubID = e.ClubID
	e.feed.Publish(ev)
}

// StartRound runs the START_ROUND command (admin-gated by the caller).
func (e *Engine) StartRound(ctx context.Context) ([]gateway.Message, error) {
	var messages []gateway.Message
	type offer struct {
		role, candidate, name string
	}
	var offered []offer
	var noCandidate []string
	var roundNum int

	err := e.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		if len(st.Pending) > 0 && !st.Canceled {
			return false, false, engineerr.ErrRoundInProgress
		}

		st.Round++
		st.Canceled = false
		st.Pending = map[string]*round.PendingOffer{}
		// A new round is a fresh episode: accepted/members_cycle from the
		// previous round (or a canceled one, which CANCEL_ROUND preserves
		// for STATUS visibility) are cleared here so that already-accepted
		// members aren't permanently excluded from future rounds. Each
		// member's durable progression lives in catalog.Member.RolesDone,
		// not in this per-round ledger.
		st.Accepted = map[string]*round.AcceptedRole{}
		st.MembersCycle = map[string][]string{}
		roundNum = st.Round

		for _, role := range c.RolesSortedByDifficulty(true) {
			excluded := st.ExcludedIDs("")
			candidateID, err := selection.ChooseCandidate(c.Members, role, excluded)
			if err != nil {
				noCandidate = append(noCandidate, role.Name)
				continue
			}
			st.Pending[role.Name] = &round.PendingOffer{Candidate: candidateID, DeclinedBy: []string{}}
			name := candidateID
			if m, err := c.FindMemberByID(candidateID); err == nil {
				name = m.Name
			}
			offered = append(offered, offer{role: role.Name, candidate: candidateID, name: name})
		}

		return false, true, nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(events.Event{Kind: events.KindRoundStarted, Round: roundNum})
	for _, o := range offered {
		messages = append(messages, gateway.Message{
			DestinationID: o.candidate,
			Text:          fmt.Sprintf("You've been offered the role %q for round %d. Reply 1 to accept, 2 to reject, 3 to decide later.", o.role, roundNum),
		})
		e.emit(events.Event{Kind: events.KindOfferMade, Round: roundNum, Role: o.role, MemberID: o.candidate, MemberName: o.name})
	}
	for _, role := range noCandidate {
		e.emit(events.Event{Kind: events.KindRoleNoCandidate, Round: roundNum, Role: role})
		for _, admin := range e.admins {
			messages = append(messages, gateway.Message{
				DestinationID: admin,
				Text:          fmt.Sprintf("No candidate available for role %q this round.", role),
			})
		}
	}

	return messages, nil
}

// Accept runs the ACCEPT command for senderID.
func (e *Engine) Accept(ctx context.Context, senderID string) ([]gateway.Message, error) {
	var messages []gateway.Message
	var acceptedRole, acceptedName string
	var roundNum int
	var roundComplete bool
	var summary string
	var recipients []string

	err := e.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		role := st.PendingRoleFor(senderID)
		if role == "" {
			return false, false, engineerr.ErrNoPendingOffer
		}

		m, err := c.FindMemberByID(senderID)
		if err != nil {
			return false, false, err
		}

		delete(st.Pending, role)
		st.Accepted[role] = &round.AcceptedRole{MemberID: senderID, MemberName: m.Name}
		st.MembersCycle[senderID] = append(st.MembersCycle[senderID], role)
		if err := c.RecordRoleCompletion(senderID, role); err != nil {
			return false, false, err
		}

		acceptedRole = role
		acceptedName = m.Name
		roundNum = st.Round

		if len(st.Pending) == 0 && len(st.Accepted) > 0 {
			roundComplete = true
			summary = renderSummary(st)
			st.LastSummary = &summary
			for _, acc := range st.Accepted {
				recipients = append(recipients, acc.MemberID)
			}
		}

		return true, true, nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(events.Event{Kind: events.KindOfferAccepted, Round: roundNum, Role: acceptedRole, MemberID: senderID, MemberName: acceptedName})
	messages = append(messages, gateway.Message{DestinationID: senderID, Text: fmt.Sprintf("Accepted: %s", acceptedRole)})

	if roundComplete {
		e.emit(events.Event{Kind: events.KindRoundCompleted, Round: roundNum, Detail: summary})
		for _, r := range dedupe(append(append([]string{}, e.admins...), recipients...)) {
			messages = append(messages, gateway.Message{DestinationID: r, Text: summary})
		}
	}

	return messages, nil
}

// Reject runs the REJECT command for senderID.
func (e *Engine) Reject(ctx context.Context, senderID string) ([]gateway.Message, error) {
	var messages []gateway.Message
	var role string
	var roundNum int
	var reoffered bool
	var newCandidate, newName string
	var exhausted bool

	err := e.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		role = st.PendingRoleFor(senderID)
		if role == "" {
			return false, false, engineerr.ErrNoPendingOffer
		}
		roundNum = st.Round

		offer := st.Pending[role]
		offer.DeclinedBy = append(offer.DeclinedBy, senderID)

		excluded := st.ExcludedIDs(role)
		roleInfo, err := c.FindRole(role)
		if err != nil {
			return false, false, err
		}
		candidateID, err := selection.ChooseCandidate(c.Members, *roleInfo, excluded)
		if err == nil {
			offer.Candidate = candidateID
			reoffered = true
			newCandidate = candidateID
			newName = candidateID
			if m, err := c.FindMemberByID(candidateID); err == nil {
				newName = m.Name
			}
			return false, true, nil
		}

		delete(st.Pending, role)
		exhausted = true
		return false, true, nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(events.Event{Kind: events.KindOfferRejected, Round: roundNum, Role: role, MemberID: senderID})
	if reoffered {
		e.emit(events.Event{Kind: events.KindOfferMade, Round: roundNum, Role: role, MemberID: newCandidate, MemberName: newName})
		messages = append(messages, gateway.Message{
			DestinationID: newCandidate,
			Text:          fmt.Sprintf("You've been offered the role %q. Reply 1 to accept, 2 to reject, 3 to decide later.", role),
		})
	}
	if exhausted {
		e.emit(events.Event{Kind: events.KindRoleExhausted, Round: roundNum, Role: role})
		for _, admin := range e.admins {
			messages = append(messages, gateway.Message{DestinationID: admin, Text: fmt.Sprintf("Role %q is exhausted: every eligible member declined.", role)})
		}
	}

	return messages, nil
}

// Defer runs the DEFER command: no state mutation, just an acknowledgement.
func (e *Engine) Defer(ctx context.Context, senderID string) ([]gateway.Message, error) {
	var role string
	var roundNum int
	err := e.store.View(func(c *catalog.Catalog, st *round.RoundState) {
		role = st.PendingRoleFor(senderID)
		roundNum = st.Round
	})
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, engineerr.ErrNoPendingOffer
	}
	e.emit(events.Event{Kind: events.KindOfferDeferred, Round: roundNum, Role: role, MemberID: senderID})
	return []gateway.Message{{DestinationID: senderID, Text: fmt.Sprintf("OK, the offer for %q stays open — reply when ready.", role)}}, nil
}

// CancelRound runs the CANCEL_ROUND command (admin-gated by the caller).
func (e *Engine) CancelRound(ctx context.Context) ([]gateway.Message, error) {
	var roundNum int
	err := e.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		st.Canceled = true
		st.Pending = map[string]*round.PendingOffer{}
		roundNum = st.Round
		return false, true, nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(events.Event{Kind: events.KindRoundCanceled, Round: roundNum})
	var messages []gateway.Message
	for _, admin := range e.admins {
		messages = append(messages, gateway.Message{DestinationID: admin, Text: "Round canceled."})
	}
	return messages, nil
}

// Reset runs the RESET command (admin-gated by the caller).
func (e *Engine) Reset(ctx context.Context) ([]gateway.Message, error) {
	var roundNum int
	err := e.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		st.Pending = map[string]*round.PendingOffer{}
		st.Accepted = map[string]*round.AcceptedRole{}
		st.MembersCycle = map[string][]string{}
		st.Canceled = false
		roundNum = st.Round
		return false, true, nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(events.Event{Kind: events.KindRoundReset, Round: roundNum})
	var messages []gateway.Message
	for _, admin := range e.admins {
		messages = append(messages, gateway.Message{DestinationID: admin, Text: "Round state reset."})
	}
	return messages, nil
}

// Status renders the STATUS summary: round number, pending
// (role -> candidate name), accepted (role -> member name), roles with
// no candidate.
func (e *Engine) Status(ctx context.Context) (string, error) {
	var out string
	err := e.store.View(func(c *catalog.Catalog, st *round.RoundState) {
		out = renderStatus(c, st)
	})
	return out, err
}

func renderStatus(c *catalog.Catalog, st *round.RoundState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d\n", st.Round)
	if st.Canceled {
		b.WriteString("(previous round was canceled)\n")
	}

	b.WriteString("Pending:\n")
	for _, role := range sortedKeys(st.Pending) {
		offer := st.Pending[role]
		name := offer.Candidate
		if m, err := c.FindMemberByID(offer.Candidate); err == nil {
			name = m.Name
		}
		fmt.Fprintf(&b, "  %s -> %s\n", role, name)
	}
	if len(st.Pending) == 0 {
		b.WriteString("  (none)\n")
	}

	b.WriteString("Accepted:\n")
	for _, role := range sortedKeysAccepted(st.Accepted) {
		acc := st.Accepted[role]
		fmt.Fprintf(&b, "  %s -> %s\n", role, acc.MemberName)
	}
	if len(st.Accepted) == 0 {
		b.WriteString("  (none)\n")
	}

	var noCandidate []string
	for _, role := range c.Roles {
		if _, pending := st.Pending[role.Name]; pending {
			continue
		}
		if _, accepted := st.Accepted[role.Name]; accepted {
			continue
		}
		noCandidate = append(noCandidate, role.Name)
	}
	if len(noCandidate) > 0 {
		sort.Strings(noCandidate)
		fmt.Fprintf(&b, "No candidate / exhausted: %s\n", strings.Join(noCandidate, ", "))
	}

	return b.String()
}

func renderSummary(st *round.RoundState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d complete.\n", st.Round)
	for _, role := range sortedKeysAccepted(st.Accepted) {
		acc := st.Accepted[role]
		fmt.Fprintf(&b, "  %s: %s\n", role, acc.MemberName)
	}
	return b.String()
}

func sortedKeys(m map[string]*round.PendingOffer) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysAccepted(m map[string]*round.AcceptedRole) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
