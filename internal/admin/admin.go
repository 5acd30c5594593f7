// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package admin implements add/remove member and the members list op.
// Like internal/engine, every mutating operation goes through
// store.ClubStore so it shares the tenant lock and atomic persistence
// with the round state machine.
package admin

import (
	"fmt"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/store"
)

// Ops runs admin catalog operations for one club.
type Ops struct {
	store *store.ClubStore
}

// New creates an Ops bound to a club's store.
func New(st *store.ClubStore) *Ops {
	return &Ops{store: st}
}

// AddMember validates id, inserts the member with level 1 and an empty
// roles_done, and persists.
func (o *Ops) AddMember(name, id string, isGuest bool) error {
	if !catalog.ValidID(id) {
		return fmt.Errorf("id %q is not E.164-digit form: %w", id, engineerr.ErrInvalidID)
	}
	return o.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		if err := c.AddMember(catalog.Member{
			Name:      name,
			ID:        id,
			IsGuest:   isGuest,
			Level:     1,
			RolesDone: []string{},
		}); err != nil {
			return false, false, err
		}
		st.MembersCycle[id] = []string{}
		return true, true, nil
	})
}

// RemoveMember resolves ref by id then by name, refusing with
// engineerr.ErrMemberBusy if the member currently holds a pending offer
// or an accepted role in the round.
func (o *Ops) RemoveMember(ref string) error {
	return o.store.Mutate(func(c *catalog.Catalog, st *round.RoundState) (bool, bool, error) {
		m, err := c.FindMember(ref)
		if err != nil {
			return false, false, err
		}
		if st.IsBusy(m.ID) {
			return false, false, fmt.Errorf("member %q: %w", ref, engineerr.ErrMemberBusy)
		}
		if err := c.RemoveMember(m.ID); err != nil {
			return false, false, err
		}
		delete(st.MembersCycle, m.ID)
		return true, true, nil
	})
}

// MembersList returns (name, id, level) tuples sorted by name.
func (o *Ops) MembersList() ([]catalog.Member, error) {
	var out []catalog.Member
	err := o.store.View(func(c *catalog.Catalog, st *round.RoundState) {
		out = c.MembersSortedByName()
	})
	return out, err
}
