// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

// Config bounds the feed's history.
type Config struct {
	// MaxEvents caps how many events the history retains.
	MaxEvents int

	// MaxAge hides events older than this from History reads.
	MaxAge time.Duration
}

// Feed fans committed round transitions out to subscribed monitors and
// keeps a bounded history. Publishing never blocks on a slow monitor:
// a subscriber whose buffer is full misses the event and is expected
// to re-sync from History using its last seen Seq.
type Feed struct {
	mu        sync.Mutex
	maxEvents int
	maxAge    time.Duration
	nextSeq   int64
	history   []Event
	subs      map[int]*subscriber
	nextSubID int
	closed    bool
}

type subscriber struct {
	clubID string
	ch     chan Event
}

// NewFeed creates a feed with the given retention bounds.
func NewFeed(cfg Config) *Feed {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 10000
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Feed{
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		subs:      map[int]*subscriber{},
	}
}

// Publish stamps e with the next sequence number (and the current time
// if unset), records it, and delivers it to matching subscribers. The
// stamped event is returned. Publishing on a closed feed is a no-op.
func (f *Feed) Publish(e Event) Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return e
	}

	f.nextSeq++
	e.Seq = f.nextSeq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	f.history = append(f.history, e)
	if len(f.history) > f.maxEvents {
		f.history = f.history[len(f.history)-f.maxEvents:]
	}

	for _, sub := range f.subs {
		if sub.clubID != "" && sub.clubID != e.ClubID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Buffer full: the monitor re-syncs from History.
		}
	}

	return e
}

// Subscribe registers a monitor for one club's events (or every club's
// when clubID is empty). The returned cancel func must be called when
// the monitor disconnects; it closes the channel.
func (f *Feed) Subscribe(clubID string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	f.nextSubID++
	id := f.nextSubID
	f.subs[id] = &subscriber{clubID: clubID, ch: ch}

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// History returns retained events matching q in publish order,
// excluding events older than the feed's MaxAge.
func (f *Feed) History(q Query) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-f.maxAge)
	result := make([]Event, 0)
	for _, e := range f.history {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if q.matches(e) {
			result = append(result, e)
		}
	}
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[len(result)-q.Limit:]
	}
	return result
}

// Close closes every subscriber channel and stops accepting publishes.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
}
