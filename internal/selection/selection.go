// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package selection implements the hierarchical candidate-selection
// algorithm: given a role and an exclusion set, it picks the single
// best-fit member deterministically. The algorithm is pure; it reads
// the catalog and never mutates it.
package selection

import (
	"fmt"
	"sort"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
)

// ChooseCandidate returns the chosen member's id, or
// engineerr.ErrNoCandidateAvailable when every member is excluded.
// excludedIDs always contains current candidates, accepted members, and
// the role's declined_by set — the caller (internal/engine) builds this
// from round.RoundState.ExcludedIDs.
func ChooseCandidate(members []catalog.Member, role catalog.Role, excludedIDs map[string]bool) (string, error) {
	pool := eligiblePool(members, excludedIDs)
	if len(pool) == 0 {
		return "", fmt.Errorf("role %q: %w", role.Name, engineerr.ErrNoCandidateAvailable)
	}

	d := role.Difficulty

	// Tier 1: level >= d, role not done.
	if m := pickBest(filter(pool, func(m *catalog.Member) bool {
		return m.Level >= d && !m.HasCompleted(role.Name)
	})); m != nil {
		return m.ID, nil
	}

	// Tier 2: level >= d, role already done (repeaters).
	if m := pickBest(filter(pool, func(m *catalog.Member) bool {
		return m.Level >= d && m.HasCompleted(role.Name)
	})); m != nil {
		return m.ID, nil
	}

	// Tier 3: fallback by descending level from d-1 down to 1, fresh
	// before repeat at each level.
	for level := d - 1; level >= 1; level-- {
		lvl := level
		if m := pickBest(filter(pool, func(m *catalog.Member) bool {
			return m.Level == lvl && !m.HasCompleted(role.Name)
		})); m != nil {
			return m.ID, nil
		}
		if m := pickBest(filter(pool, func(m *catalog.Member) bool {
			return m.Level == lvl && m.HasCompleted(role.Name)
		})); m != nil {
			return m.ID, nil
		}
	}

	return "", fmt.Errorf("role %q: %w", role.Name, engineerr.ErrNoCandidateAvailable)
}

// eligiblePool returns the members not in excludedIDs. Guests are
// eligible like everyone else.
func eligiblePool(members []catalog.Member, excludedIDs map[string]bool) []*catalog.Member {
	pool := make([]*catalog.Member, 0, len(members))
	for i := range members {
		m := &members[i]
		if excludedIDs[m.ID] {
			continue
		}
		pool = append(pool, m)
	}
	return pool
}

func filter(pool []*catalog.Member, pred func(*catalog.Member) bool) []*catalog.Member {
	out := make([]*catalog.Member, 0, len(pool))
	for _, m := range pool {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// pickBest applies the deterministic tie-break: fewest roles_done
// first, then lexicographic name, then id. Returns nil if tier is empty.
func pickBest(tier []*catalog.Member) *catalog.Member {
	if len(tier) == 0 {
		return nil
	}
	sort.Slice(tier, func(i, j int) bool {
		a, b := tier[i], tier[j]
		if len(a.RolesDone) != len(b.RolesDone) {
			return len(a.RolesDone) < len(b.RolesDone)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return tier[0]
}
