// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateRequired(cfg, errs)
	v.validateServer(cfg, errs)
	v.validateRegistry(cfg, errs)
	v.validateGateway(cfg, errs)
	v.validateEvents(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateRequired(cfg *Config, errs *ValidationError) {
	if cfg.Version == "" {
		errs.Add("version", "is required")
	}
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port != 0 {
		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			errs.Add("server.port", "must be between 0 and 65535")
		}
	}
}

func (v *Validator) validateRegistry(cfg *Config, errs *ValidationError) {
	if cfg.Registry.ClubsDir == "" {
		errs.Add("registry.clubs_dir", "is required")
	}
	if cfg.Registry.ManifestPath == "" {
		errs.Add("registry.manifest_path", "is required")
	}
}

func (v *Validator) validateGateway(cfg *Config, errs *ValidationError) {
	if cfg.Gateway.URL != "" {
		u, err := url.Parse(cfg.Gateway.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs.Add("gateway.url", fmt.Sprintf("invalid URL '%s'", cfg.Gateway.URL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs.Add("gateway.url", fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme))
		}
		if cfg.Gateway.Token == "" {
			errs.Add("gateway.token", "is required when gateway.url is set")
		}
	}
	if cfg.Gateway.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Gateway.Timeout); err != nil {
			errs.Add("gateway.timeout", fmt.Sprintf("invalid duration '%s'", cfg.Gateway.Timeout))
		}
	}
}

func (v *Validator) validateEvents(cfg *Config, errs *ValidationError) {
	if cfg.Events.History.MaxEvents < 0 {
		errs.Add("events.history.max_events", "must not be negative")
	}
	if cfg.Events.History.MaxAge != "" {
		if _, err := time.ParseDuration(cfg.Events.History.MaxAge); err != nil {
			errs.Add("events.history.max_age", fmt.Sprintf("invalid duration '%s'", cfg.Events.History.MaxAge))
		}
	}
}
