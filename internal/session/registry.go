package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackfix-data/trackfix/internal/monitoring"
	"github.com/trackfix-data/trackfix/internal/timeutil"
	"github.com/trackfix-data/trackfix/internal/track"
)

// Registry maps opaque session identifiers to live sessions. It is safe
// for concurrent create/get/delete; its lock covers only the map and is
// never held across an edit.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry

	clock timeutil.Clock
	ttl   time.Duration // 0 disables idle eviction
}

type registryEntry struct {
	session    *Session
	lastAccess time.Time
}

// NewRegistry builds a registry. A non-zero ttl marks sessions idle for
// longer than that as evictable; RunEvictor does the actual sweeping.
func NewRegistry(clock timeutil.Clock, ttl time.Duration) *Registry {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		clock:    clock,
		ttl:      ttl,
	}
}

// Create wraps the track in a new session and returns its identifier.
func (r *Registry) Create(t *track.Track) (string, *Session) {
	id := uuid.NewString()
	sess := New(t)

	r.mu.Lock()
	r.sessions[id] = &registryEntry{session: sess, lastAccess: r.clock.Now()}
	r.mu.Unlock()

	return id, sess
}

// Get returns the session for id, or nil. A hit refreshes the idle timer.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	e.lastAccess = r.clock.Now()
	return e.session
}

// Delete removes and returns the session for id, or nil.
func (r *Registry) Delete(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return e.session
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle removes every session idle for longer than the ttl and
// returns how many were dropped. No-op when the ttl is zero.
func (r *Registry) EvictIdle() int {
	if r.ttl <= 0 {
		return 0
	}

	cutoff := r.clock.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.sessions {
		if e.lastAccess.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// RunEvictor sweeps idle sessions on the given interval until the
// context is cancelled. Intended to run as a background goroutine.
func (r *Registry) RunEvictor(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}

	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if n := r.EvictIdle(); n > 0 {
				monitoring.Logf("evicted %d idle session(s)", n)
			}
		}
	}
}
