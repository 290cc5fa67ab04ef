// Package session holds per-visitor analysis state between requests.
package session

import (
	"sync"
	"time"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/google/uuid"
)

// KeyStatus is the outcome of the last credential probe.
type KeyStatus int

const (
	KeyUnchecked KeyStatus = iota
	KeyValid
	KeyInvalid
	KeyCheckFailed
)

func (s KeyStatus) String() string {
	switch s {
	case KeyValid:
		return "valid"
	case KeyInvalid:
		return "invalid"
	case KeyCheckFailed:
		return "check_failed"
	default:
		return "unchecked"
	}
}

// State is the mutable state of one session. Callers hold Lock while
// reading or writing fields.
type State struct {
	sync.Mutex

	ID               string
	UploadedFileName string
	Data             *analysis.Table

	APIKey     string
	KeyStatus  KeyStatus
	KeyMessage string

	lastSeen time.Time
}

// HasData reports whether a table has been loaded.
func (s *State) HasData() bool { return s.Data != nil }

// Store keeps sessions in memory and drops those idle longer than the TTL.
// Expired sessions are swept lazily on access.
type Store struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	byID map[string]*State
}

// New returns a store; ttl <= 0 disables expiry, nil now uses time.Now.
func New(ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{ttl: ttl, now: now, byID: map[string]*State{}}
}

// Create starts an empty session.
func (s *Store) Create() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	st := &State{ID: uuid.NewString(), lastSeen: s.now()}
	s.byID[st.ID] = st
	return st
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*State, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	st, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	st.lastSeen = s.now()
	return st, true
}

// Acquire returns the session for id, creating a fresh one when id is
// unknown or expired.
func (s *Store) Acquire(id string) *State {
	if st, ok := s.Get(id); ok {
		return st
	}
	return s.Create()
}

// Delete discards a session and everything it holds.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.byID)
}

func (s *Store) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, st := range s.byID {
		if st.lastSeen.Before(cutoff) {
			delete(s.byID, id)
		}
	}
}
