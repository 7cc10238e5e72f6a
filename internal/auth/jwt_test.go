package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

// makeToken builds an unsigned JWT-shaped token with the given claims.
// Only the payload segment matters here; nothing validates signatures.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := float64(now.Add(-time.Hour).Unix())
	future := float64(now.Add(time.Hour).Unix())

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"past exp", makeToken(t, map[string]any{"exp": past, "sub": "1"}), true},
		{"future exp", makeToken(t, map[string]any{"exp": future, "sub": "1"}), false},
		{"no exp claim", makeToken(t, map[string]any{"sub": "1"}), false},
		{"fractional exp in the future", makeToken(t, map[string]any{"exp": future + 0.5}), false},
		{"empty string", "", true},
		{"two segments only", "aaaa.bbbb", true},
		{"payload not base64url", "h.!!!.s", true},
		{"payload not json", "h." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".s", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenExpired(tt.token, now); got != tt.want {
				t.Errorf("tokenExpired(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestTokenExpired_PaddedPayload(t *testing.T) {
	// Some encoders emit padded base64; the checker must cope.
	payload, _ := json.Marshal(map[string]any{"exp": float64(time.Now().Add(time.Hour).Unix())})
	token := "h." + base64.URLEncoding.EncodeToString(payload) + ".s"
	if tokenExpired(token, time.Now()) {
		t.Error("padded payload with future exp reported expired")
	}
}
