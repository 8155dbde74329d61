// Package confirm tracks pending self-demotion confirmations. Entries are
// process-lifetime only: a restart simply forces the confirmation to be
// requested again, which is the safe direction for a privilege-dropping
// action.
package confirm

import (
	"sync"
	"time"

	"github.com/pesterhq/pester/internal/state"
)

// Window is how long a requested confirmation stays valid. The boundary is
// inclusive: a check at exactly Window after the request still confirms.
const Window = 60 * time.Second

type key struct {
	guild state.GuildID
	actor state.UserID
}

type Option func(*Tracker)

func WithNowFunc(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.nowFn = now
		}
	}
}

// Tracker holds pending confirmations keyed per (guild, actor), so actors in
// different guilds, or different actors in one guild, never interfere.
type Tracker struct {
	mu      sync.Mutex
	pending map[key]time.Time
	nowFn   func() time.Time
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		pending: make(map[key]time.Time),
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Request records (or refreshes) a pending confirmation for the actor.
func (t *Tracker) Request(guild state.GuildID, actor state.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[key{guild, actor}] = t.nowFn()
}

// Check reports whether a live confirmation exists for the actor. An expired
// entry is deleted on the way out; there is no background sweep, since the
// map holds at most one entry per actor mid-confirmation.
func (t *Tracker) Check(guild state.GuildID, actor state.UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{guild, actor}
	requested, ok := t.pending[k]
	if !ok {
		return false
	}
	if t.nowFn().Sub(requested) <= Window {
		return true
	}
	delete(t.pending, k)
	return false
}

// Clear removes any pending confirmation for the actor. Safe to call when
// none exists.
func (t *Tracker) Clear(guild state.GuildID, actor state.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key{guild, actor})
}

// PendingCount returns the number of live or expired-but-unswept entries.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
