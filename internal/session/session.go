// Package session implements the stateful editing context for one
// uploaded track: the edit operations, the bounded undo/redo history,
// and the process-wide registry of live sessions.
//
// Every public method on Session runs under the session's own mutex, so
// concurrent requests against one session serialize; the registry holds
// a separate lock that is never held across an edit.
package session

import (
	"sync"

	"github.com/trackfix-data/trackfix/internal/track"
)

// MaxHistory bounds the snapshot ring. The oldest snapshot is dropped
// once the ring exceeds this size.
const MaxHistory = 10

// Session owns the current track, its immutable original, and the
// history ring. All snapshots are deep, independent copies.
type Session struct {
	mu         sync.Mutex
	original   *track.Track
	current    *track.Track
	history    []*track.Track
	historyIdx int
}

// New wraps a decoded track in a fresh session. The initial history
// contains a single snapshot of the original state.
func New(t *track.Track) *Session {
	s := &Session{
		original: t.Clone(),
		current:  t.Clone(),
	}
	s.history = []*track.Track{t.Clone()}
	s.historyIdx = 0
	return s
}

// snapshot records the post-edit state. Called with the lock held, only
// after an edit's preconditions passed and its mutation completed.
func (s *Session) snapshot() {
	// discard redo states when we are not at the end of history
	if s.historyIdx < len(s.history)-1 {
		s.history = s.history[:s.historyIdx+1]
	}

	s.history = append(s.history, s.current.Clone())
	s.historyIdx++

	if len(s.history) > MaxHistory {
		s.history = s.history[1:]
		s.historyIdx--
	}
}

// Undo steps back one realized state. Returns false (a no-op, not an
// error) when already at the oldest snapshot.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.historyIdx <= 0 {
		return false
	}
	s.historyIdx--
	s.current = s.history[s.historyIdx].Clone()
	return true
}

// Redo steps forward again. Returns false when there is nothing to redo.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.historyIdx >= len(s.history)-1 {
		return false
	}
	s.historyIdx++
	s.current = s.history[s.historyIdx].Clone()
	return true
}

// Reset drops all but the first snapshot and restores from it.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = s.history[:1]
	s.historyIdx = 0
	s.current = s.history[0].Clone()
}

// Dict returns the canonical projection of the current track, built
// under the session lock so callers always see a consistent state.
func (s *Session) Dict() track.Dict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Dict()
}

// Stats summarises the current track.
func (s *Session) Stats() track.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Stats()
}

// Export returns a deep copy of the current track for encoding, so the
// codec never touches live session state.
func (s *Session) Export() *track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// historyLen reports the ring size; used by tests to check the bound.
func (s *Session) historyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
