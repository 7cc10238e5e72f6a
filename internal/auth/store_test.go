package auth

import (
	"testing"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

func TestStore_SetSessionCopiesUser(t *testing.T) {
	s := NewStore()
	u := &client.UserInfo{Email: "dev@personal-q.local", Authenticated: true}
	s.SetSession(MarkerCookieAuth, u)

	u.Email = "mutated@example.com"
	if got := s.User().Email; got != "dev@personal-q.local" {
		t.Errorf("stored user changed through caller pointer: %q", got)
	}

	out := s.User()
	out.Email = "mutated-again@example.com"
	if got := s.User().Email; got != "dev@personal-q.local" {
		t.Errorf("stored user changed through returned pointer: %q", got)
	}
}

func TestStore_HasSessionNeedsBoth(t *testing.T) {
	user := &client.UserInfo{Email: "dev@personal-q.local", Authenticated: true}

	tests := []struct {
		name string
		prep func(*Store)
		want bool
	}{
		{"empty", func(s *Store) {}, false},
		{"marker without user", func(s *Store) { s.SetSession(MarkerCookieAuth, nil) }, false},
		{"marker and user", func(s *Store) { s.SetSession(MarkerCookieAuth, user) }, true},
		{"cleared", func(s *Store) {
			s.SetSession(MarkerCookieAuth, user)
			s.Clear()
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.prep(s)
			if got := s.HasSession(); got != tt.want {
				t.Errorf("HasSession() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_ClearDropsEverything(t *testing.T) {
	s := NewStore()
	s.SetSession("tok-abc", &client.UserInfo{Email: "dev@personal-q.local"})
	s.Clear()
	if s.Marker() != "" {
		t.Errorf("Marker() = %q after Clear", s.Marker())
	}
	if s.User() != nil {
		t.Error("User() non-nil after Clear")
	}
}
