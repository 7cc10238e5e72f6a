// Package auth holds the client-side session state machine: an
// in-memory marker store, the session verifier, and the OAuth callback
// listener. The real credential is never persisted here; it lives in
// the HTTP cookie jar or travels as a bearer token.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// tokenExpired reports whether a JWT's exp claim (seconds since epoch)
// is in the past. The signature is not checked; that is the server's
// job. Tokens that cannot be decoded at all are treated as expired,
// while a token without an exp claim is left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return true
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return true
	}
	var claims struct {
		Exp float64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return true
	}
	if claims.Exp == 0 {
		return false
	}
	return now.After(time.Unix(int64(claims.Exp), 0))
}
