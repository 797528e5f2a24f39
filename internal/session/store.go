package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Store is a registry of live controllers keyed by session ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
	idleTTL  time.Duration
}

// NewStore creates an empty store. Sessions idle for longer than idleTTL are
// removed by Sweep; a zero TTL disables sweeping.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Controller),
		idleTTL:  idleTTL,
	}
}

// Create starts a new session with a random UUID.
func (s *Store) Create() *Controller {
	c := NewController(uuid.New().String())

	s.mu.Lock()
	s.sessions[c.ID()] = c
	s.mu.Unlock()

	return c
}

// Get looks up a session by ID.
func (s *Store) Get(id string) (*Controller, error) {
	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Delete closes and removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c.Close()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes sessions idle since before now-idleTTL and returns how many
// were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}

	cutoff := now.Add(-s.idleTTL)

	var expired []*Controller

	s.mu.Lock()
	for id, c := range s.sessions {
		if c.idleSince().Before(cutoff) {
			expired = append(expired, c)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}

	return len(expired)
}

// Close stops every session.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
