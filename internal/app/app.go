// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the configured components together: registry,
// session router, event bus, gateway sender, and the API server.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/clubbot/internal/api"
	"github.com/wingedpig/clubbot/internal/config"
	"github.com/wingedpig/clubbot/internal/events"
	"github.com/wingedpig/clubbot/internal/gateway"
	"github.com/wingedpig/clubbot/internal/session"
	"github.com/wingedpig/clubbot/internal/tenant"
)

// App is the main application container.
type App struct {
	config    *config.Config
	feed      *events.Feed
	registry  *tenant.Registry
	apiServer *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Version    string
}

// New creates a new App instance.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Command-line overrides
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}

	maxAge, err := time.ParseDuration(cfg.Events.History.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("events.history.max_age: %w", err)
	}
	feed := events.NewFeed(events.Config{
		MaxEvents: cfg.Events.History.MaxEvents,
		MaxAge:    maxAge,
	})

	registry, err := tenant.Load(cfg.Registry.ManifestPath, cfg.Registry.ClubsDir, feed)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	log.Printf("Loaded %d clubs", len(registry.Contexts()))

	var sender gateway.Sender
	if cfg.Gateway.URL != "" {
		timeout, err := time.ParseDuration(cfg.Gateway.Timeout)
		if err != nil {
			return nil, fmt.Errorf("gateway.timeout: %w", err)
		}
		sender = gateway.NewHTTPSender(cfg.Gateway.URL, cfg.Gateway.Token, timeout)
	} else {
		log.Printf("No gateway configured, outbound messages will be logged")
		sender = gateway.LogSender{}
	}

	router := session.NewRouter(registry, session.NewStore())

	apiServer := api.NewServer(
		api.ServerConfig{Host: cfg.Server.Host, Port: cfg.Server.Port},
		api.Dependencies{
			Registry:      registry,
			SessionRouter: router,
			Sender:        sender,
			Feed:          feed,
		},
	)

	return &App{
		config:    cfg,
		feed:      feed,
		registry:  registry,
		apiServer: apiServer,
		done:      make(chan struct{}),
	}, nil
}

// Registry returns the loaded club registry.
func (app *App) Registry() *tenant.Registry {
	return app.registry
}

// Run starts the API server and blocks until a shutdown signal, context
// cancellation, or Stop.
func (app *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := app.apiServer.ListenAndServe(); err != nil {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	case err := <-serverErr:
		return fmt.Errorf("api server: %w", err)
	}

	return app.Shutdown(context.Background())
}

// Stop requests a shutdown.
func (app *App) Stop() {
	app.stopOnce.Do(func() { close(app.done) })
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown: %v", err)
	}

	app.feed.Close()

	return nil
}
