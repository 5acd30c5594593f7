// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/clubbot/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	monitorBuffer = 64
	pingInterval  = 54 * time.Second
	pongWait      = 60 * time.Second
)

// EventHandler serves the round event history and the admin live
// monitor stream.
type EventHandler struct {
	feed *events.Feed
}

// NewEventHandler creates a new event handler.
func NewEventHandler(feed *events.Feed) *EventHandler {
	return &EventHandler{feed: feed}
}

// History returns retained round events. Query params: club_id, kind
// (repeatable), after_seq, limit.
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := events.Query{ClubID: query.Get("club_id")}
	for _, k := range query["kind"] {
		q.Kinds = append(q.Kinds, events.Kind(k))
	}
	if s := query.Get("after_seq"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			q.AfterSeq = n
		}
	}
	if s := query.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			q.Limit = n
		}
	}

	WriteJSON(w, http.StatusOK, h.feed.History(q))
}

// WebSocket streams round events for one club (query param club_id, or
// every club if omitted) to a connected admin monitor. Each event is
// one JSON message; if the monitor falls behind and misses events, it
// re-syncs through History using the last Seq it saw.
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	clubID := r.URL.Query().Get("club_id")
	feed, cancel := h.feed.Subscribe(clubID, monitorBuffer)
	defer cancel()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Read side exists only to detect the monitor going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
