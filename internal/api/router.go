// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the webhook endpoint that feeds the session
// router, plus a small read-only JSON API and the admin live monitor
// websocket.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/clubbot/internal/api/handlers"
	"github.com/wingedpig/clubbot/internal/api/middleware"
	"github.com/wingedpig/clubbot/internal/events"
	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/session"
	"github.com/wingedpig/clubbot/internal/tenant"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host string
	Port int
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Registry      *tenant.Registry
	SessionRouter *session.Router
	Sender        gateway.Sender
	Feed          *events.Feed
}

// NewRouter creates the API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)

	webhookHandler := handlers.NewWebhookHandler(deps.SessionRouter, deps.Sender)
	r.HandleFunc("/webhook", webhookHandler.Receive).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()

	clubHandler := handlers.NewClubHandler(deps.Registry)
	api.HandleFunc("/clubs/{club_id}/status", clubHandler.Status).Methods("GET")

	eventHandler := handlers.NewEventHandler(deps.Feed)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
