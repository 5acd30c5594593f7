// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/wingedpig/clubbot/internal/engineerr"
)

// waidPattern matches E.164 digit form: digits only, no leading "+".
var waidPattern = regexp.MustCompile(`^[0-9]{5,15}$`)

// ValidID reports whether id is a plausible E.164-digit member id.
func ValidID(id string) bool {
	return waidPattern.MatchString(id)
}

// FindMember resolves ref by id first, then by exact name match.
// Returns engineerr.ErrNotFound if neither matches.
func (c *Catalog) FindMember(ref string) (*Member, error) {
	for i := range c.Members {
		if c.Members[i].ID == ref {
			return &c.Members[i], nil
		}
	}
	for i := range c.Members {
		if c.Members[i].Name == ref {
			return &c.Members[i], nil
		}
	}
	return nil, fmt.Errorf("member %q: %w", ref, engineerr.ErrNotFound)
}

// FindMemberByID resolves strictly by id.
func (c *Catalog) FindMemberByID(id string) (*Member, error) {
	for i := range c.Members {
		if c.Members[i].ID == id {
			return &c.Members[i], nil
		}
	}
	return nil, fmt.Errorf("member id %q: %w", id, engineerr.ErrNotFound)
}

// AddMember inserts m, failing with engineerr.ErrDuplicateID if its id
// is already present.
func (c *Catalog) AddMember(m Member) error {
	for _, existing := range c.Members {
		if existing.ID == m.ID {
			return fmt.Errorf("member id %q: %w", m.ID, engineerr.ErrDuplicateID)
		}
	}
	if m.RolesDone == nil {
		m.RolesDone = []string{}
	}
	c.Members = append(c.Members, m)
	return nil
}

// RemoveMember deletes the member with the given id. Callers (Admin Ops)
// are responsible for the MemberBusy check against round state before
// calling this.
func (c *Catalog) RemoveMember(id string) error {
	for i := range c.Members {
		if c.Members[i].ID == id {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member id %q: %w", id, engineerr.ErrNotFound)
}

// FindRole resolves a role by name.
func (c *Catalog) FindRole(name string) (*Role, error) {
	for i := range c.Roles {
		if c.Roles[i].Name == name {
			return &c.Roles[i], nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, engineerr.ErrNotFound)
}

// RolesSortedByDifficulty returns a copy of the role set sorted by
// difficulty, descending when desc is true. Ties break lexicographically
// by name, matching the order rounds offer roles in.
func (c *Catalog) RolesSortedByDifficulty(desc bool) []Role {
	out := make([]Role, len(c.Roles))
	copy(out, c.Roles)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Difficulty != out[j].Difficulty {
			if desc {
				return out[i].Difficulty > out[j].Difficulty
			}
			return out[i].Difficulty < out[j].Difficulty
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RecordRoleCompletion appends roleName to the member's roles_done. If
// the updated length equals the number of roles defined for the club,
// roles_done is cleared to start a fresh cycle. Level is
// never auto-changed here.
func (c *Catalog) RecordRoleCompletion(memberID, roleName string) error {
	m, err := c.FindMemberByID(memberID)
	if err != nil {
		return err
	}
	m.RolesDone = append(m.RolesDone, roleName)
	if len(m.RolesDone) >= len(c.Roles) {
		m.RolesDone = []string{}
	}
	return nil
}

// MembersSortedByName returns a copy of the member set sorted by name,
// for the members_list admin op.
func (c *Catalog) MembersSortedByName() []Member {
	out := make([]Member, len(c.Members))
	copy(out, c.Members)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
