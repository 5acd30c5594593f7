// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/events"
	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/store"
)

const adminID = "5215559999999"

func newTestEngine(t *testing.T, c *catalog.Catalog) (*Engine, *store.ClubStore, string) {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), data, 0644))

	st, err := store.Open(dir)
	require.NoError(t, err)
	return New("club-centro", st, []string{adminID}, nil), st, dir
}

func twoRoleCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Members: []catalog.Member{
			{Name: "Ana", ID: "1111111111", Level: 2, RolesDone: []string{}},
			{Name: "Bruno", ID: "2222222222", Level: 2, RolesDone: []string{}},
		},
		Roles: []catalog.Role{
			{Name: "Timer", Difficulty: 1},
			{Name: "Evaluator", Difficulty: 2},
		},
	}
}

func destinations(msgs []gateway.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.DestinationID)
	}
	return out
}

// checkInvariants asserts the per-round invariants: at most one active
// role per member, and no role both pending and accepted.
func checkInvariants(t *testing.T, st *store.ClubStore) {
	t.Helper()
	err := st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		active := map[string]int{}
		for role, offer := range rs.Pending {
			active[offer.Candidate]++
			_, both := rs.Accepted[role]
			assert.False(t, both, "role %s is both pending and accepted", role)
		}
		for _, acc := range rs.Accepted {
			active[acc.MemberID]++
		}
		for id, n := range active {
			assert.LessOrEqual(t, n, 1, "member %s holds %d active roles", id, n)
		}
		for role, offer := range rs.Pending {
			for _, declined := range offer.DeclinedBy {
				assert.NotEqual(t, offer.Candidate, declined, "role %s candidate is in declined_by", role)
			}
		}
	})
	require.NoError(t, err)
}

func TestStartRound_HappyPath(t *testing.T) {
	// Two roles, two members at adequate level: the harder role is
	// offered first, the tie-break assigns by name, and both members
	// receive an offer.
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	msgs, err := e.StartRound(context.Background())
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Equal(t, 1, rs.Round)
		require.Contains(t, rs.Pending, "Evaluator")
		require.Contains(t, rs.Pending, "Timer")
		assert.Equal(t, "1111111111", rs.Pending["Evaluator"].Candidate)
		assert.Equal(t, "2222222222", rs.Pending["Timer"].Candidate)
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1111111111", "2222222222"}, destinations(msgs))
	checkInvariants(t, st)
}

func TestStartRound_RefusesWhilePending(t *testing.T) {
	e, _, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	_, err = e.StartRound(context.Background())
	assert.ErrorIs(t, err, engineerr.ErrRoundInProgress)
}

func TestStartRound_AfterCancelStartsClean(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.CancelRound(context.Background())
	require.NoError(t, err)

	_, err = e.StartRound(context.Background())
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Equal(t, 2, rs.Round)
		assert.False(t, rs.Canceled)
		assert.Len(t, rs.Pending, 2)
	})
	require.NoError(t, err)
}

func TestAcceptBoth_CompletesRound(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)

	msgs, err := e.Accept(context.Background(), "2222222222")
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Empty(t, rs.Pending)
		require.Contains(t, rs.Accepted, "Evaluator")
		require.Contains(t, rs.Accepted, "Timer")
		assert.Equal(t, "Ana", rs.Accepted["Evaluator"].MemberName)
		assert.Equal(t, "Bruno", rs.Accepted["Timer"].MemberName)
		require.NotNil(t, rs.LastSummary)
		assert.Contains(t, *rs.LastSummary, "Evaluator: Ana")

		ana, _ := c.FindMemberByID("1111111111")
		bruno, _ := c.FindMemberByID("2222222222")
		assert.Equal(t, []string{"Evaluator"}, ana.RolesDone)
		assert.Equal(t, []string{"Timer"}, bruno.RolesDone)
	})
	require.NoError(t, err)

	// The completion summary reaches the admin and both accepted members.
	dests := destinations(msgs)
	assert.Contains(t, dests, adminID)
	assert.Contains(t, dests, "1111111111")
	assert.Contains(t, dests, "2222222222")
	checkInvariants(t, st)
}

func TestAccept_NoPendingOffer(t *testing.T) {
	e, _, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.Accept(context.Background(), "1111111111")
	assert.ErrorIs(t, err, engineerr.ErrNoPendingOffer)
}

func TestReject_ExhaustsWhenNobodyLeft(t *testing.T) {
	// Ana rejects Evaluator; the only other member is already pending
	// for Timer, so the role exhausts and the admin is notified.
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	msgs, err := e.Reject(context.Background(), "1111111111")
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.NotContains(t, rs.Pending, "Evaluator")
		assert.Contains(t, rs.Pending, "Timer")
	})
	require.NoError(t, err)

	assert.Contains(t, destinations(msgs), adminID)
	checkInvariants(t, st)
}

func TestReject_ReselectsNextCandidate(t *testing.T) {
	c := twoRoleCatalog()
	c.Members = append(c.Members, catalog.Member{Name: "Carla", ID: "3333333333", Level: 2, RolesDone: []string{}})
	e, st, _ := newTestEngine(t, c)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	// Ana holds Evaluator, Bruno holds Timer; Carla is free.
	msgs, err := e.Reject(context.Background(), "1111111111")
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		require.Contains(t, rs.Pending, "Evaluator")
		assert.Equal(t, "3333333333", rs.Pending["Evaluator"].Candidate)
		assert.Equal(t, []string{"1111111111"}, rs.Pending["Evaluator"].DeclinedBy)
	})
	require.NoError(t, err)

	assert.Contains(t, destinations(msgs), "3333333333")
	checkInvariants(t, st)
}

func TestReject_DeclinerNeverReoffered(t *testing.T) {
	c := twoRoleCatalog()
	c.Members = append(c.Members, catalog.Member{Name: "Carla", ID: "3333333333", Level: 2, RolesDone: []string{}})
	e, st, _ := newTestEngine(t, c)

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	_, err = e.Reject(context.Background(), "1111111111")
	require.NoError(t, err)
	// Carla now holds Evaluator; she rejects too. Ana already declined
	// and Bruno is pending for Timer, so Evaluator exhausts.
	_, err = e.Reject(context.Background(), "3333333333")
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.NotContains(t, rs.Pending, "Evaluator")
	})
	require.NoError(t, err)
	checkInvariants(t, st)
}

func TestDefer_LeavesOfferIntact(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)

	msgs, err := e.Defer(context.Background(), "1111111111")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1111111111", msgs[0].DestinationID)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Equal(t, "1111111111", rs.Pending["Evaluator"].Candidate)
	})
	require.NoError(t, err)

	// The deferred candidate can still accept.
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)
}

func TestCancelRound_ClearsPendingKeepsAccepted(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)

	_, err = e.CancelRound(context.Background())
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.True(t, rs.Canceled)
		assert.Empty(t, rs.Pending)
		assert.Contains(t, rs.Accepted, "Evaluator")
		assert.NotEmpty(t, rs.MembersCycle["1111111111"])
	})
	require.NoError(t, err)
}

func TestReset_ClearsLedgerKeepsRoundNumber(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)

	_, err = e.Reset(context.Background())
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Equal(t, 1, rs.Round)
		assert.Empty(t, rs.Pending)
		assert.Empty(t, rs.Accepted)
		assert.Empty(t, rs.MembersCycle)
		assert.False(t, rs.Canceled)
	})
	require.NoError(t, err)
}

func TestStartRound_NoCandidateNotifiesAdmins(t *testing.T) {
	// One member, two roles: only one role can be offered per round.
	c := &catalog.Catalog{
		Members: []catalog.Member{{Name: "Ana", ID: "1111111111", Level: 2, RolesDone: []string{}}},
		Roles: []catalog.Role{
			{Name: "Timer", Difficulty: 1},
			{Name: "Evaluator", Difficulty: 2},
		},
	}
	e, st, _ := newTestEngine(t, c)

	msgs, err := e.StartRound(context.Background())
	require.NoError(t, err)

	err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Len(t, rs.Pending, 1)
		assert.Contains(t, rs.Pending, "Evaluator")
	})
	require.NoError(t, err)

	assert.Contains(t, destinations(msgs), adminID)
	checkInvariants(t, st)
}

func TestCycleReset_WhenRolesDoneReachesRoleCount(t *testing.T) {
	// One member, three roles, three rounds. Ana is the only candidate,
	// so each round offers her Speaker (fresh the first time, then as a
	// repeater) and leaves the other roles without a candidate. The third
	// acceptance brings roles_done to the role count and it resets to empty.
	c := &catalog.Catalog{
		Members: []catalog.Member{{Name: "Ana", ID: "1111111111", Level: 3, RolesDone: []string{}}},
		Roles: []catalog.Role{
			{Name: "Timer", Difficulty: 1},
			{Name: "Evaluator", Difficulty: 2},
			{Name: "Speaker", Difficulty: 3},
		},
	}
	e, st, _ := newTestEngine(t, c)

	for i := 0; i < 3; i++ {
		_, err := e.StartRound(context.Background())
		require.NoError(t, err)
		_, err = e.Accept(context.Background(), "1111111111")
		require.NoError(t, err)
	}

	err := st.View(func(c *catalog.Catalog, rs *round.RoundState) {
		ana, _ := c.FindMemberByID("1111111111")
		assert.Empty(t, ana.RolesDone, "cycle must reset once every role slot is filled")
		assert.Equal(t, 3, rs.Round)
	})
	require.NoError(t, err)
}

func TestStatus_RendersAllSections(t *testing.T) {
	e, _, _ := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)

	status, err := e.Status(context.Background())
	require.NoError(t, err)
	assert.Contains(t, status, "Round 1")
	assert.Contains(t, status, "Timer -> Bruno")
	assert.Contains(t, status, "Evaluator -> Ana")
}

func TestRoundNumber_StrictlyIncreases(t *testing.T) {
	e, st, _ := newTestEngine(t, twoRoleCatalog())

	for want := 1; want <= 3; want++ {
		_, err := e.StartRound(context.Background())
		require.NoError(t, err)
		_, err = e.Accept(context.Background(), "1111111111")
		require.NoError(t, err)
		_, err = e.Accept(context.Background(), "2222222222")
		require.NoError(t, err)

		err = st.View(func(c *catalog.Catalog, rs *round.RoundState) {
			assert.Equal(t, want, rs.Round)
		})
		require.NoError(t, err)
	}
}

func TestRoundLifecycle_EmitsFeedEvents(t *testing.T) {
	// A full round produces the expected typed transition sequence on
	// the monitor feed, with round/role/member fields filled in.
	feed := events.NewFeed(events.Config{MaxEvents: 100})
	defer feed.Close()

	dir := t.TempDir()
	data, err := json.Marshal(twoRoleCatalog())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), data, 0644))
	st, err := store.Open(dir)
	require.NoError(t, err)
	e := New("club-centro", st, []string{adminID}, feed)

	sub, cancel := feed.Subscribe("club-centro", 16)
	defer cancel()

	_, err = e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "2222222222")
	require.NoError(t, err)

	history := feed.History(events.Query{ClubID: "club-centro"})
	require.Len(t, history, 6)

	assert.Equal(t, events.KindRoundStarted, history[0].Kind)
	assert.Equal(t, 1, history[0].Round)

	assert.Equal(t, events.KindOfferMade, history[1].Kind)
	assert.Equal(t, "Evaluator", history[1].Role)
	assert.Equal(t, "1111111111", history[1].MemberID)
	assert.Equal(t, "Ana", history[1].MemberName)

	assert.Equal(t, events.KindOfferMade, history[2].Kind)
	assert.Equal(t, "Timer", history[2].Role)
	assert.Equal(t, "Bruno", history[2].MemberName)

	assert.Equal(t, events.KindOfferAccepted, history[3].Kind)
	assert.Equal(t, "Evaluator", history[3].Role)
	assert.Equal(t, events.KindOfferAccepted, history[4].Kind)
	assert.Equal(t, "Timer", history[4].Role)

	assert.Equal(t, events.KindRoundCompleted, history[5].Kind)
	assert.Contains(t, history[5].Detail, "Evaluator: Ana")

	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Seq, history[i-1].Seq)
	}

	// A live subscriber saw the same stream, starting with the round
	// start.
	first := <-sub
	assert.Equal(t, events.KindRoundStarted, first.Kind)
	assert.Equal(t, "club-centro", first.ClubID)
}

func TestReject_EmitsRejectionThenOutcome(t *testing.T) {
	feed := events.NewFeed(events.Config{MaxEvents: 100})
	defer feed.Close()

	dir := t.TempDir()
	data, err := json.Marshal(twoRoleCatalog())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), data, 0644))
	st, err := store.Open(dir)
	require.NoError(t, err)
	e := New("club-centro", st, []string{adminID}, feed)

	_, err = e.StartRound(context.Background())
	require.NoError(t, err)
	// Ana declines Evaluator; nobody is left for it.
	_, err = e.Reject(context.Background(), "1111111111")
	require.NoError(t, err)

	tail := feed.History(events.Query{
		Kinds: []events.Kind{events.KindOfferRejected, events.KindRoleExhausted},
	})
	require.Len(t, tail, 2)
	assert.Equal(t, events.KindOfferRejected, tail[0].Kind)
	assert.Equal(t, "1111111111", tail[0].MemberID)
	assert.Equal(t, events.KindRoleExhausted, tail[1].Kind)
	assert.Equal(t, "Evaluator", tail[1].Role)
}

func TestCrashRestart_StateSurvives(t *testing.T) {
	e, _, dir := newTestEngine(t, twoRoleCatalog())

	_, err := e.StartRound(context.Background())
	require.NoError(t, err)
	_, err = e.Accept(context.Background(), "1111111111")
	require.NoError(t, err)

	// A fresh store over the same directory sees the committed state.
	reopened, err := store.Open(dir)
	require.NoError(t, err)
	e2 := New("club-centro", reopened, []string{adminID}, nil)

	err = reopened.View(func(c *catalog.Catalog, rs *round.RoundState) {
		assert.Contains(t, rs.Accepted, "Evaluator")
		assert.Contains(t, rs.Pending, "Timer")
	})
	require.NoError(t, err)

	// And the surviving pending offer is still actionable.
	_, err = e2.Accept(context.Background(), "2222222222")
	require.NoError(t, err)
}
