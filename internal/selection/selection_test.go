// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
)

func member(name, id string, level int, done ...string) catalog.Member {
	if done == nil {
		done = []string{}
	}
	return catalog.Member{Name: name, ID: id, Level: level, RolesDone: done}
}

func TestChooseCandidate_Tier1_FreshAtLevel(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "1111111111", 3),
		member("Bruno", "2222222222", 1),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 2}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "1111111111", id)
}

func TestChooseCandidate_Tier2_RepeaterBeforeFallback(t *testing.T) {
	// Adequate-level repeater wins over an under-leveled fresh member.
	members := []catalog.Member{
		member("Ana", "1111111111", 3, "Evaluator"),
		member("Bruno", "2222222222", 1),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 2}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "1111111111", id)
}

func TestChooseCandidate_Tier3_FallbackByDescendingLevel(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "1111111111", 1),
		member("Bruno", "2222222222", 2),
	}
	role := catalog.Role{Name: "Toastmaster", Difficulty: 4}

	// Nobody reaches difficulty 4; level 3 is empty, level 2 has Bruno.
	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "2222222222", id)
}

func TestChooseCandidate_Tier3_FreshBeforeRepeatAtSameLevel(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "1111111111", 2, "Toastmaster"),
		member("Zoe", "9999999999", 2),
	}
	role := catalog.Role{Name: "Toastmaster", Difficulty: 4}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "9999999999", id)
}

func TestChooseCandidate_AllAtLevelOne_PicksByName(t *testing.T) {
	// Everyone at level 1 for a difficulty-3 role: fallback reaches
	// level 1 and the tie-break picks by name order.
	members := []catalog.Member{
		member("Carla", "3333333333", 1),
		member("Ana", "1111111111", 1),
		member("Bruno", "2222222222", 1),
	}
	role := catalog.Role{Name: "Speaker", Difficulty: 3}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "1111111111", id)
}

func TestChooseCandidate_TieBreak_FewestDoneFirst(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "1111111111", 2, "Timer"),
		member("Bruno", "2222222222", 2),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 2}

	// Bruno has fewer roles done this cycle; name order would favor Ana.
	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "2222222222", id)
}

func TestChooseCandidate_TieBreak_IDLast(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "2222222222", 2),
		member("Ana", "1111111111", 2),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 1}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "1111111111", id)
}

func TestChooseCandidate_Exclusions(t *testing.T) {
	members := []catalog.Member{
		member("Ana", "1111111111", 2),
		member("Bruno", "2222222222", 2),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 2}

	id, err := ChooseCandidate(members, role, map[string]bool{"1111111111": true})
	require.NoError(t, err)
	assert.Equal(t, "2222222222", id)

	_, err = ChooseCandidate(members, role, map[string]bool{
		"1111111111": true,
		"2222222222": true,
	})
	assert.ErrorIs(t, err, engineerr.ErrNoCandidateAvailable)
}

func TestChooseCandidate_EmptyPool(t *testing.T) {
	_, err := ChooseCandidate(nil, catalog.Role{Name: "Timer", Difficulty: 1}, nil)
	assert.ErrorIs(t, err, engineerr.ErrNoCandidateAvailable)
}

func TestChooseCandidate_GuestsIncluded(t *testing.T) {
	guest := member("Gina", "4444444444", 2)
	guest.IsGuest = true
	members := []catalog.Member{guest}
	role := catalog.Role{Name: "Timer", Difficulty: 1}

	id, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	assert.Equal(t, "4444444444", id)
}

func TestChooseCandidate_Pure(t *testing.T) {
	// Repeated calls on unchanged inputs yield the same result, and the
	// input slice is left untouched.
	members := []catalog.Member{
		member("Carla", "3333333333", 2, "Timer"),
		member("Ana", "1111111111", 1),
		member("Bruno", "2222222222", 3),
	}
	role := catalog.Role{Name: "Evaluator", Difficulty: 2}

	first, err := ChooseCandidate(members, role, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ChooseCandidate(members, role, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "Carla", members[0].Name)
	assert.Equal(t, "Ana", members[1].Name)
	assert.Equal(t, "Bruno", members[2].Name)
}
