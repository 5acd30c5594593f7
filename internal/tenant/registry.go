// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tenant loads the club registry and resolves inbound senders
// to the club (tenant) their message targets. The registry is built
// once at startup and frozen; each club owns its own store, engine, and
// admin ops, so tenants never share mutable state.
package tenant

import (
	"errors"
	"log"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/clubbot/internal/admin"
	"github.com/wingedpig/clubbot/internal/catalog"
	"github.com/wingedpig/clubbot/internal/engine"
	"github.com/wingedpig/clubbot/internal/engineerr"
	"github.com/wingedpig/clubbot/internal/events"
	"github.com/wingedpig/clubbot/internal/round"
	"github.com/wingedpig/clubbot/internal/store"
)

// Context is one club's runtime state: its store, its round engine, its
// admin ops, and its admin id list from the registry manifest.
type Context struct {
	ClubID string
	Admins []string
	Store  *store.ClubStore
	Engine *engine.Engine
	Ops    *admin.Ops
}

// IsAdmin reports whether senderID may run admin commands on this club.
// An admin need not be a member.
func (c *Context) IsAdmin(senderID string) bool {
	for _, id := range c.Admins {
		if id == senderID {
			return true
		}
	}
	return false
}

// Resolution is the outcome of inferring which club an inbound sender
// is talking to.
type Resolution int

const (
	// ResolvedClub means exactly one club was identified.
	ResolvedClub Resolution = iota

	// NeedsPick means the sender administers several clubs and must
	// pick one before admin commands can proceed.
	NeedsPick

	// UnknownSender means no club claims this sender.
	UnknownSender
)

// Registry holds every loaded club context, keyed by club id. Built at
// startup from the registry manifest and frozen thereafter.
type Registry struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// Load reads the registry manifest and opens every club's store
// concurrently. A club whose persisted files fail to decode is still
// registered — its store refuses all commands until an operator
// intervenes — so one corrupt tenant never takes down the rest.
func Load(manifestPath, clubsDir string, feed *events.Feed) (*Registry, error) {
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	r := &Registry{contexts: make(map[string]*Context, len(manifest.Clubs))}

	var g errgroup.Group
	for clubID, entry := range manifest.Clubs {
		clubID, entry := clubID, entry
		g.Go(func() error {
			st, err := store.Open(filepath.Join(clubsDir, clubID))
			if err != nil {
				if !errors.Is(err, engineerr.ErrCorruptState) {
					return err
				}
				log.Printf("club %s: CORRUPT STATE, refusing commands until repaired: %v", clubID, err)
			}
			ctx := &Context{
				ClubID: clubID,
				Admins: append([]string(nil), entry.Admins...),
				Store:  st,
				Engine: engine.New(clubID, st, entry.Admins, feed),
				Ops:    admin.New(st),
			}
			r.mu.Lock()
			r.contexts[clubID] = ctx
			r.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the context for clubID, or nil if not registered.
func (r *Registry) Get(clubID string) *Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contexts[clubID]
}

// Contexts enumerates every club context, sorted by club id for
// deterministic iteration.
func (r *Registry) Contexts() []*Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Context, 0, len(r.contexts))
	for _, ctx := range r.contexts {
		out = append(out, ctx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClubID < out[j].ClubID })
	return out
}

// AdminClubs returns the ids of every club where senderID is an admin,
// sorted.
func (r *Registry) AdminClubs(senderID string) []string {
	var out []string
	for _, ctx := range r.Contexts() {
		if ctx.IsAdmin(senderID) {
			out = append(out, ctx.ClubID)
		}
	}
	return out
}

// memberOf reports whether senderID is a member of ctx's club.
func memberOf(ctx *Context, senderID string) bool {
	var found bool
	err := ctx.Store.View(func(c *catalog.Catalog, st *round.RoundState) {
		_, ferr := c.FindMemberByID(senderID)
		found = ferr == nil
	})
	return err == nil && found
}

// MemberClub returns the unique club where senderID is a member, or nil
// if the sender belongs to no club or to more than one.
func (r *Registry) MemberClub(senderID string) *Context {
	var found *Context
	for _, ctx := range r.Contexts() {
		if memberOf(ctx, senderID) {
			if found != nil {
				return nil
			}
			found = ctx
		}
	}
	return found
}

// InferTenant resolves which club an inbound message from senderID
// targets. boundClubID is the session's bound club, if any.
//
// Resolution order: bound session club; unique membership; unique
// admin club; any club where the sender holds a pending offer or an
// accepted role; otherwise NeedsPick for multi-club admins and
// UnknownSender for everyone else.
func (r *Registry) InferTenant(senderID, boundClubID string) (*Context, Resolution) {
	if boundClubID != "" {
		if ctx := r.Get(boundClubID); ctx != nil {
			return ctx, ResolvedClub
		}
	}

	if ctx := r.MemberClub(senderID); ctx != nil {
		return ctx, ResolvedClub
	}

	adminClubs := r.AdminClubs(senderID)
	if len(adminClubs) == 1 {
		return r.Get(adminClubs[0]), ResolvedClub
	}

	for _, ctx := range r.Contexts() {
		var busy bool
		err := ctx.Store.View(func(c *catalog.Catalog, st *round.RoundState) {
			busy = st.IsBusy(senderID)
		})
		if err == nil && busy {
			return ctx, ResolvedClub
		}
	}

	if len(adminClubs) > 1 {
		return nil, NeedsPick
	}
	return nil, UnknownSender
}
