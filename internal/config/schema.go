// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for the bot process.
package config

// Config is the root configuration structure for clubbot.
type Config struct {
	Version  string         `json:"version"`
	Server   ServerConfig   `json:"server"`
	Registry RegistryConfig `json:"registry"`
	Gateway  GatewayConfig  `json:"gateway"`
	Events   EventsConfig   `json:"events"`
}

// ServerConfig configures the HTTP server that receives webhook events.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// RegistryConfig locates the club registry and the per-club data
// directories.
type RegistryConfig struct {
	// ClubsDir is the directory holding one subdirectory per club
	// (catalog.json + state.json).
	ClubsDir string `json:"clubs_dir"`

	// ManifestPath is the registry manifest file listing clubs and
	// their admins. Defaults to <clubs_dir>/registry.json.
	ManifestPath string `json:"manifest_path"`
}

// GatewayConfig configures the outbound messaging transport.
type GatewayConfig struct {
	// URL is the gateway's send endpoint. Empty means outbound messages
	// are logged instead of sent (useful for local development).
	URL string `json:"url"`

	// Token is the bearer credential for the gateway.
	Token string `json:"token"`

	// Timeout bounds one outbound send, as a duration string ("5s").
	Timeout string `json:"timeout"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	History EventHistoryConfig `json:"history"`
}

// EventHistoryConfig configures event history retention for the admin
// live monitor.
type EventHistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}
