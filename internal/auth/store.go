package auth

import (
	"sync"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

// Store keeps the session marker and the resolved identity for the
// life of the process. The marker is not a credential: it only records
// that a session was established and which mode it used, so the UI
// knows a verification is worth attempting. Losing it on restart is
// intentional.
type Store struct {
	mu     sync.RWMutex
	marker string
	user   *client.UserInfo
}

func NewStore() *Store {
	return &Store{}
}

// SetSession records the marker and identity together. The user is
// copied so callers cannot mutate the stored value afterwards.
func (s *Store) SetSession(marker string, user *client.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = marker
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
}

// Clear drops both the marker and the identity.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = ""
	s.user = nil
}

// Marker returns the stored session marker, or "" when no session has
// been established.
func (s *Store) Marker() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marker
}

// User returns a copy of the resolved identity, or nil.
func (s *Store) User() *client.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// HasSession reports whether both the marker and the identity are
// present. Authenticated state is defined as exactly this conjunction.
func (s *Store) HasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marker != "" && s.user != nil
}
