// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/tenant"
)

// ClubHandler serves read-only club state for external dashboards,
// mirroring the STATUS command without going through the chat surface.
type ClubHandler struct {
	registry *tenant.Registry
}

// NewClubHandler creates a club handler.
func NewClubHandler(registry *tenant.Registry) *ClubHandler {
	return &ClubHandler{registry: registry}
}

// roundStatusView is the JSON shape of one club's round state.
type roundStatusView struct {
	ClubID      string            `json:"club_id"`
	Round       int               `json:"round"`
	Canceled    bool              `json:"canceled"`
	Pending     map[string]string `json:"pending"`  // role -> candidate name
	Accepted    map[string]string `json:"accepted"` // role -> member name
	Unassigned  []string          `json:"unassigned"`
	LastSummary string            `json:"last_summary,omitempty"`
}

// Status returns the round status for one club.
func (h *ClubHandler) Status(w http.ResponseWriter, r *http.Request) {
	clubID := mux.Vars(r)["club_id"]
	club := h.registry.Get(clubID)
	if club == nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, "unknown club")
		return
	}

	view := roundStatusView{
		ClubID:   clubID,
		Pending:  map[string]string{},
		Accepted: map[string]string{},
	}
	err := club.Store.View(func(c *catalog.Catalog, st *round.RoundState) {
		view.Round = st.Round
		view.Canceled = st.Canceled
		for role, offer := range st.Pending {
			name := offer.Candidate
			if m, err := c.FindMemberByID(offer.Candidate); err == nil {
				name = m.Name
			}
			view.Pending[role] = name
		}
		for role, acc := range st.Accepted {
			view.Accepted[role] = acc.MemberName
		}
		for _, role := range c.Roles {
			if _, ok := st.Pending[role.Name]; ok {
				continue
			}
			if _, ok := st.Accepted[role.Name]; ok {
				continue
			}
			view.Unassigned = append(view.Unassigned, role.Name)
		}
		if st.LastSummary != nil {
			view.LastSummary = *st.LastSummary
		}
	})
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, ErrCorruptState, "club state is unavailable")
		return
	}

	WriteJSON(w, http.StatusOK, view)
}
