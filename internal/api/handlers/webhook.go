// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/session"
)

// InboundEvent is the normalized webhook payload from the gateway.
// Any other fields the gateway sends are discarded on decode.
type InboundEvent struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// WebhookHandler receives inbound gateway events and routes them
// through the session router. Outbound sends happen here, after the
// router has returned — state is already persisted and the tenant lock
// released by then, so slow sends never serialize the tenant.
type WebhookHandler struct {
	router *session.Router
	sender gateway.Sender
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(router *session.Router, sender gateway.Sender) *WebhookHandler {
	return &WebhookHandler{router: router, sender: sender}
}

// Receive handles one inbound event.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var event InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid payload")
		return
	}
	if event.SenderID == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "sender_id is required")
		return
	}

	messages := h.router.Handle(r.Context(), event.SenderID, event.Text)

	errs := gateway.DeliverAll(r.Context(), h.sender, messages)
	for _, err := range errs {
		log.Printf("webhook: %v", err)
	}

	WriteJSON(w, http.StatusOK, map[string]int{
		"queued": len(messages),
		"failed": len(errs),
	})
}
