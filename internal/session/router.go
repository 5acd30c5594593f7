// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/tenant"
)

var numericToken = regexp.MustCompile(`^[0-9]{1,3}$`)

// Router classifies inbound text and dispatches it to the round state
// machine, admin ops, or menu navigation. Dispatch precedence is
// strict: pending-offer replies first, then session-driven menus, then
// legacy text commands, then the root-menu fallback.
type Router struct {
	registry *tenant.Registry
	sessions *Store
}

// NewRouter creates a router over the loaded club registry.
func NewRouter(registry *tenant.Registry, sessions *Store) *Router {
	return &Router{registry: registry, sessions: sessions}
}

// Handle processes one normalized inbound event and returns the
// outbound messages to deliver. State has already been persisted when
// Handle returns; the caller performs the sends.
func (r *Router) Handle(ctx context.Context, senderID, text string) []gateway.Message {
	// Commands match case-folded; free-text captures (member names)
	// keep the sender's original casing.
	raw := strings.TrimSpace(text)
	folded := strings.ToLower(raw)

	s := r.sessions.Get(senderID)
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Pending-offer reply bypasses the menu entirely.
	if offerClub := r.pendingOfferClub(senderID); offerClub != nil {
		switch folded {
		case "1":
			msgs, err := offerClub.Engine.Accept(ctx, senderID)
			return r.run(s, senderID, msgs, err)
		case "2":
			msgs, err := offerClub.Engine.Reject(ctx, senderID)
			return r.run(s, senderID, msgs, err)
		case "3":
			msgs, err := offerClub.Engine.Defer(ctx, senderID)
			return r.run(s, senderID, msgs, err)
		}
	}

	// 2. In-flight input capture consumes the message as an argument.
	if s.Awaiting != AwaitingNone {
		return r.handleAwaiting(ctx, s, senderID, raw)
	}

	// Session-driven menu navigation.
	if numericToken.MatchString(folded) {
		n, _ := strconv.Atoi(folded)
		switch s.Mode {
		case ModeRoot:
			return r.handleRootPick(ctx, s, senderID, n)
		case ModeMember:
			return r.handleMemberPick(ctx, s, senderID, n)
		case ModeAdmin:
			return r.handleAdminPick(ctx, s, senderID, n)
		case ModeAdminPick:
			return r.handleClubPick(ctx, s, senderID, n)
		}
	}

	// 3. Legacy text commands.
	if msgs, ok := r.handleLegacy(ctx, s, senderID, raw, folded); ok {
		return msgs
	}

	// 4. Fallback: root menu.
	return r.rootMenu(s, senderID)
}

// run unwraps an engine command result, rendering engine errors as a
// short reply followed by the root menu.
func (r *Router) run(s *Session, senderID string, msgs []gateway.Message, err error) []gateway.Message {
	if err != nil {
		return r.errorReply(s, senderID, err)
	}
	return msgs
}

func (r *Router) errorReply(s *Session, senderID string, err error) []gateway.Message {
	s.Mode = ModeRoot
	s.Awaiting = AwaitingNone
	reply := []gateway.Message{{DestinationID: senderID, Text: renderError(err)}}
	return append(reply, r.rootMenu(s, senderID)...)
}

// renderError maps engine error kinds to short, language-agnostic
// explanations.
func renderError(err error) string {
	switch {
	case errors.Is(err, engineerr.ErrUnauthorized):
		return "Not allowed: admin only."
	case errors.Is(err, engineerr.ErrNotFound):
		return "Not found."
	case errors.Is(err, engineerr.ErrDuplicateID):
		return "That id already exists."
	case errors.Is(err, engineerr.ErrInvalidID):
		return "Id must be digits only (no +)."
	case errors.Is(err, engineerr.ErrRoundInProgress):
		return "A round is already in progress."
	case errors.Is(err, engineerr.ErrNoPendingOffer):
		return "No pending offer."
	case errors.Is(err, engineerr.ErrMemberBusy):
		return "Member holds a role in the current round."
	case errors.Is(err, engineerr.ErrCorruptState):
		return "This club is unavailable, an operator has been notified."
	default:
		return "Something went wrong."
	}
}

// pendingOfferClub returns the club where senderID currently holds a
// pending offer, or nil.
func (r *Router) pendingOfferClub(senderID string) *tenant.Context {
	for _, ctx := range r.registry.Contexts() {
		var pending bool
		err := ctx.Store.View(func(c *catalog.Catalog, st *round.RoundState) {
			pending = st.PendingRoleFor(senderID) != ""
		})
		if err == nil && pending {
			return ctx
		}
	}
	return nil
}

// rootOption is one rendered root-menu line; selection indexes the same
// list the rendering built, so numbers always match what the user saw.
type rootOption struct {
	label  string
	invoke func(ctx context.Context, s *Session, senderID string) []gateway.Message
}

func (r *Router) rootOptions(senderID string) []rootOption {
	var opts []rootOption
	if r.registry.MemberClub(senderID) != nil {
		opts = append(opts,
			rootOption{"Member menu", func(ctx context.Context, s *Session, senderID string) []gateway.Message {
				s.Mode = ModeMember
				return r.memberMenu(senderID)
			}},
			rootOption{"My status", r.myStatus},
		)
	}
	if len(r.registry.AdminClubs(senderID)) > 0 {
		opts = append(opts, rootOption{"Admin menu", func(ctx context.Context, s *Session, senderID string) []gateway.Message {
			return r.enterAdmin(ctx, s, senderID)
		}})
	}
	return opts
}

func (r *Router) rootMenu(s *Session, senderID string) []gateway.Message {
	opts := r.rootOptions(senderID)
	if len(opts) == 0 {
		return []gateway.Message{{DestinationID: senderID, Text: "Unknown sender. Ask a club admin to add you."}}
	}
	var b strings.Builder
	b.WriteString("Menu:\n")
	for i, opt := range opts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt.label)
	}
	return []gateway.Message{{DestinationID: senderID, Text: b.String()}}
}

func (r *Router) handleRootPick(ctx context.Context, s *Session, senderID string, n int) []gateway.Message {
	opts := r.rootOptions(senderID)
	if n < 1 || n > len(opts) {
		return r.rootMenu(s, senderID)
	}
	return opts[n-1].invoke(ctx, s, senderID)
}

// Member menu

func (r *Router) memberMenu(senderID string) []gateway.Message {
	return []gateway.Message{{DestinationID: senderID, Text: "Member menu:\n1. My role\n2. Round status\n3. Back"}}
}

func (r *Router) handleMemberPick(ctx context.Context, s *Session, senderID string, n int) []gateway.Message {
	switch n {
	case 1:
		return r.myStatus(ctx, s, senderID)
	case 2:
		return r.roundStatus(ctx, s, senderID)
	case 3:
		s.Reset()
		return r.rootMenu(s, senderID)
	default:
		s.Mode = ModeRoot
		return r.rootMenu(s, senderID)
	}
}

// myStatus renders the sender's current role: a pending offer, an
// accepted role, or neither.
func (r *Router) myStatus(ctx context.Context, s *Session, senderID string) []gateway.Message {
	club, res := r.registry.InferTenant(senderID, s.ClubID)
	if res != tenant.ResolvedClub {
		return []gateway.Message{{DestinationID: senderID, Text: "No role this round."}}
	}
	var text string
	err := club.Store.View(func(c *catalog.Catalog, st *round.RoundState) {
		if role := st.PendingRoleFor(senderID); role != "" {
			text = fmt.Sprintf("You have a pending offer for %q. Reply 1 to accept, 2 to reject, 3 to decide later.", role)
		} else if role := st.AcceptedRoleFor(senderID); role != "" {
			text = fmt.Sprintf("You have accepted %q for round %d.", role, st.Round)
		} else {
			text = "No role this round."
		}
	})
	if err != nil {
		return r.errorReply(s, senderID, err)
	}
	return []gateway.Message{{DestinationID: senderID, Text: text}}
}

func (r *Router) roundStatus(ctx context.Context, s *Session, senderID string) []gateway.Message {
	club, res := r.registry.InferTenant(senderID, s.ClubID)
	if res != tenant.ResolvedClub {
		return r.rootMenu(s, senderID)
	}
	status, err := club.Engine.Status(ctx)
	if err != nil {
		return r.errorReply(s, senderID, err)
	}
	return []gateway.Message{{DestinationID: senderID, Text: status}}
}

// Admin menu

// enterAdmin resolves which club the sender administers, entering the
// pick menu when they administer several.
func (r *Router) enterAdmin(ctx context.Context, s *Session, senderID string) []gateway.Message {
	clubs := r.registry.AdminClubs(senderID)
	switch len(clubs) {
	case 0:
		return r.errorReply(s, senderID, engineerr.ErrUnauthorized)
	case 1:
		s.ClubID = clubs[0]
		s.Mode = ModeAdmin
		return r.adminMenu(senderID)
	default:
		if s.ClubID != "" {
			s.Mode = ModeAdmin
			return r.adminMenu(senderID)
		}
		s.Mode = ModeAdminPick
		s.pickOptions = clubs
		var b strings.Builder
		b.WriteString("Pick a club:\n")
		for i, id := range clubs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, id)
		}
		return []gateway.Message{{DestinationID: senderID, Text: b.String()}}
	}
}

func (r *Router) handleClubPick(ctx context.Context, s *Session, senderID string, n int) []gateway.Message {
	if n < 1 || n > len(s.pickOptions) {
		return r.rootMenu(s, senderID)
	}
	s.ClubID = s.pickOptions[n-1]
	s.pickOptions = nil
	s.Mode = ModeAdmin
	return r.adminMenu(senderID)
}

func (r *Router) adminMenu(senderID string) []gateway.Message {
	return []gateway.Message{{DestinationID: senderID, Text: "Admin menu:\n1. Start round\n2. Round status\n3. Cancel round\n4. Reset\n5. Members\n6. Add member\n7. Remove member\n8. Back"}}
}

// adminClub returns the sender's bound admin club, verifying
// authorization.
func (r *Router) adminClub(s *Session, senderID string) (*tenant.Context, error) {
	club, res := r.registry.InferTenant(senderID, s.ClubID)
	if res == tenant.NeedsPick {
		return nil, engineerr.ErrUnauthorized
	}
	if club == nil || !club.IsAdmin(senderID) {
		return nil, engineerr.ErrUnauthorized
	}
	return club, nil
}

func (r *Router) handleAdminPick(ctx context.Context, s *Session, senderID string, n int) []gateway.Message {
	club, err := r.adminClub(s, senderID)
	if err != nil {
		return r.errorReply(s, senderID, err)
	}

	switch n {
	case 1:
		msgs, err := club.Engine.StartRound(ctx)
		return r.run(s, senderID, msgs, err)
	case 2:
		return r.roundStatus(ctx, s, senderID)
	case 3:
		msgs, err := club.Engine.CancelRound(ctx)
		return r.run(s, senderID, msgs, err)
	case 4:
		msgs, err := club.Engine.Reset(ctx)
		return r.run(s, senderID, msgs, err)
	case 5:
		return r.membersList(s, senderID, club)
	case 6:
		s.Awaiting = AwaitingAddMember
		return []gateway.Message{{DestinationID: senderID, Text: "Send: name, id"}}
	case 7:
		s.Awaiting = AwaitingRemoveMember
		return []gateway.Message{{DestinationID: senderID, Text: "Send the member's id or name."}}
	case 8:
		s.Reset()
		return r.rootMenu(s, senderID)
	default:
		s.Mode = ModeRoot
		return r.rootMenu(s, senderID)
	}
}

func (r *Router) membersList(s *Session, senderID string, club *tenant.Context) []gateway.Message {
	members, err := club.Ops.MembersList()
	if err != nil {
		return r.errorReply(s, senderID, err)
	}
	if len(members) == 0 {
		return []gateway.Message{{DestinationID: senderID, Text: "No members."}}
	}
	var b strings.Builder
	b.WriteString("Members:\n")
	for _, m := range members {
		fmt.Fprintf(&b, "  %s (%s) level %d\n", m.Name, m.ID, m.Level)
	}
	return []gateway.Message{{DestinationID: senderID, Text: b.String()}}
}

// handleAwaiting consumes the message as the argument of the in-flight
// admin op.
func (r *Router) handleAwaiting(ctx context.Context, s *Session, senderID, text string) []gateway.Message {
	awaiting := s.Awaiting
	s.Awaiting = AwaitingNone

	club, err := r.adminClub(s, senderID)
	if err != nil {
		return r.errorReply(s, senderID, err)
	}

	switch awaiting {
	case AwaitingAddMember:
		return r.addMember(s, senderID, club, text)
	case AwaitingRemoveMember:
		return r.removeMember(s, senderID, club, text)
	}
	return r.rootMenu(s, senderID)
}

func (r *Router) addMember(s *Session, senderID string, club *tenant.Context, args string) []gateway.Message {
	name, id, ok := splitAddArgs(args)
	if !ok {
		return []gateway.Message{{DestinationID: senderID, Text: "Expected: name, id"}}
	}
	if err := club.Ops.AddMember(name, id, false); err != nil {
		return r.errorReply(s, senderID, err)
	}
	return []gateway.Message{{DestinationID: senderID, Text: fmt.Sprintf("Added %s (%s).", name, id)}}
}

func (r *Router) removeMember(s *Session, senderID string, club *tenant.Context, ref string) []gateway.Message {
	ref = strings.TrimSpace(ref)
	if err := club.Ops.RemoveMember(ref); err != nil {
		return r.errorReply(s, senderID, err)
	}
	return []gateway.Message{{DestinationID: senderID, Text: fmt.Sprintf("Removed %s.", ref)}}
}

// splitAddArgs parses "name, id" into its parts.
func splitAddArgs(args string) (name, id string, ok bool) {
	parts := strings.SplitN(args, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	name = strings.TrimSpace(parts[0])
	id = strings.TrimSpace(parts[1])
	if name == "" || id == "" {
		return "", "", false
	}
	return name, id, true
}

// Legacy text commands, kept for backward compatibility with prior
// releases. Matching is case-insensitive exact; AGREGAR/ELIMINAR carry
// arguments after the verb, taken from the unfolded input so member
// names keep their casing.
func (r *Router) handleLegacy(ctx context.Context, s *Session, senderID, raw, folded string) ([]gateway.Message, bool) {
	adminCmd := func(run func(club *tenant.Context) []gateway.Message) []gateway.Message {
		club, err := r.adminClub(s, senderID)
		if err != nil {
			return r.errorReply(s, senderID, err)
		}
		return run(club)
	}

	switch folded {
	case "hola":
		s.Mode = ModeRoot
		return r.rootMenu(s, senderID), true
	case "iniciar":
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			msgs, err := club.Engine.StartRound(ctx)
			return r.run(s, senderID, msgs, err)
		}), true
	case "estado":
		return r.roundStatus(ctx, s, senderID), true
	case "cancelar":
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			msgs, err := club.Engine.CancelRound(ctx)
			return r.run(s, senderID, msgs, err)
		}), true
	case "reset":
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			msgs, err := club.Engine.Reset(ctx)
			return r.run(s, senderID, msgs, err)
		}), true
	case "miembros":
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			return r.membersList(s, senderID, club)
		}), true
	case "mi rol":
		return r.myStatus(ctx, s, senderID), true
	case "acepto":
		if club := r.pendingOfferClub(senderID); club != nil {
			msgs, err := club.Engine.Accept(ctx, senderID)
			return r.run(s, senderID, msgs, err), true
		}
		return r.errorReply(s, senderID, engineerr.ErrNoPendingOffer), true
	case "rechazo":
		if club := r.pendingOfferClub(senderID); club != nil {
			msgs, err := club.Engine.Reject(ctx, senderID)
			return r.run(s, senderID, msgs, err), true
		}
		return r.errorReply(s, senderID, engineerr.ErrNoPendingOffer), true
	}

	if strings.HasPrefix(folded, "agregar ") {
		args := raw[len("agregar "):]
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			return r.addMember(s, senderID, club, args)
		}), true
	}
	if strings.HasPrefix(folded, "eliminar ") {
		ref := raw[len("eliminar "):]
		return adminCmd(func(club *tenant.Context) []gateway.Message {
			return r.removeMember(s, senderID, club, ref)
		}), true
	}

	return nil, false
}
