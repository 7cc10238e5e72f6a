package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

// authBackend is a scripted stand-in for the real auth endpoints. The
// deny flag flips /auth/me between accepting and rejecting, and every
// resource path answers 401 so the global unauthorized hook can be
// exercised.
type authBackend struct {
	mu       sync.Mutex
	meCalls  int
	deny     bool
	lastAuth string
}

func (b *authBackend) handler() http.Handler {
	unauthorized := func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.meCalls++
		b.lastAuth = r.Header.Get("Authorization")
		deny := b.deny
		b.mu.Unlock()
		if deny {
			unauthorized(w)
			return
		}
		json.NewEncoder(w).Encode(client.UserInfo{Email: "dev@personal-q.local", Authenticated: true})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("/api/v1/agents", func(w http.ResponseWriter, r *http.Request) {
		unauthorized(w)
	})
	return mux
}

func (b *authBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meCalls
}

func (b *authBackend) setDeny(v bool) {
	b.mu.Lock()
	b.deny = v
	b.mu.Unlock()
}

func (b *authBackend) authHeader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

type authFixture struct {
	m   *Manager
	api *client.Client
	srv *httptest.Server
	b   *authBackend
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	b := &authBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	api := client.New(srv.URL)
	return &authFixture{m: NewManager(api), api: api, srv: srv, b: b}
}

func futureToken(t *testing.T) string {
	t.Helper()
	return makeToken(t, map[string]any{"sub": "1", "exp": float64(time.Now().Add(time.Hour).Unix())})
}

// assertAuthed checks the expected outcome and that the authenticated
// flag stays the exact conjunction of marker and identity.
func assertAuthed(t *testing.T, m *Manager, want bool) {
	t.Helper()
	st := m.State()
	if st.IsAuthenticated != want {
		t.Fatalf("IsAuthenticated = %v, want %v", st.IsAuthenticated, want)
	}
	both := m.Store().Marker() != "" && st.User != nil
	if st.IsAuthenticated != both {
		t.Errorf("state out of sync: authenticated=%v but marker=%q user=%v",
			st.IsAuthenticated, m.Store().Marker(), st.User)
	}
}

func TestSetToken_ExpiredRejectedLocally(t *testing.T) {
	f := newAuthFixture(t)
	expired := makeToken(t, map[string]any{"exp": float64(time.Now().Add(-time.Minute).Unix())})

	err := f.m.SetToken(context.Background(), expired)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("SetToken error = %v, want ErrTokenExpired", err)
	}
	if got := f.b.calls(); got != 0 {
		t.Errorf("expired token reached the network: %d verification calls", got)
	}
	assertAuthed(t, f.m, false)
	if f.m.State().Error == "" {
		t.Error("expected a user-visible error message")
	}
}

func TestSetToken_MalformedTreatedAsExpired(t *testing.T) {
	f := newAuthFixture(t)
	err := f.m.SetToken(context.Background(), "not-a-jwt")
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("SetToken error = %v, want ErrTokenExpired", err)
	}
	if got := f.b.calls(); got != 0 {
		t.Errorf("malformed token reached the network: %d calls", got)
	}
}

func TestSetToken_BearerVerifiesAndInstalls(t *testing.T) {
	f := newAuthFixture(t)
	tok := futureToken(t)

	if err := f.m.SetToken(context.Background(), tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	assertAuthed(t, f.m, true)
	if got := f.m.Store().Marker(); got != tok {
		t.Errorf("marker = %q, want the literal token", got)
	}
	if got := f.b.authHeader(); got != "Bearer "+tok {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
	if got := f.m.State().User.Email; got != "dev@personal-q.local" {
		t.Errorf("user email = %q", got)
	}
}

func TestSetToken_CookieSentinel(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.m.SetToken(context.Background(), MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	assertAuthed(t, f.m, true)
	if got := f.m.Store().Marker(); got != MarkerCookieAuth {
		t.Errorf("marker = %q, want %q", got, MarkerCookieAuth)
	}
	if got := f.b.authHeader(); got != "" {
		t.Errorf("cookie mode sent an Authorization header: %q", got)
	}
}

func TestSetToken_DeniedLeavesNoSession(t *testing.T) {
	f := newAuthFixture(t)
	f.b.setDeny(true)

	err := f.m.SetToken(context.Background(), futureToken(t))
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("SetToken error = %v, want unauthorized", err)
	}
	assertAuthed(t, f.m, false)
	if got := f.api.Token(); got != "" {
		t.Errorf("rejected bearer token left installed on the client: %q", got)
	}
	if got := f.m.State().Error; got != "Authentication failed" {
		t.Errorf("error message = %q", got)
	}
}

func TestVerifySession_TransportFailureIsQuiet(t *testing.T) {
	api := client.New("http://127.0.0.1:1")
	m := NewManager(api)

	if m.VerifySession(context.Background()) {
		t.Fatal("VerifySession reported success against a dead server")
	}
	assertAuthed(t, m, false)
	if got := m.State().Error; got != "" {
		t.Errorf("transport failure set an error message: %q", got)
	}
}

func TestVerifySession_FirstVisitDenialStaysSilent(t *testing.T) {
	f := newAuthFixture(t)
	f.b.setDeny(true)

	if f.m.VerifySession(context.Background()) {
		t.Fatal("VerifySession reported success on denial")
	}
	if got := f.m.State().Error; got != "" {
		t.Errorf("first-visit denial set an error message: %q", got)
	}
}

func TestVerifySession_RevokedSessionSetsExpiredMessage(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.m.SetToken(ctx, MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	f.b.setDeny(true)

	if f.m.VerifySession(ctx) {
		t.Fatal("VerifySession reported success after revocation")
	}
	assertAuthed(t, f.m, false)
	if got := f.m.State().Error; got != sessionExpiredMsg {
		t.Errorf("error message = %q, want %q", got, sessionExpiredMsg)
	}
}

func TestVerifySession_RefreshKeepsBearerMarker(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	tok := futureToken(t)

	if err := f.m.SetToken(ctx, tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if !f.m.VerifySession(ctx) {
		t.Fatal("VerifySession failed on a live session")
	}
	if got := f.m.Store().Marker(); got != tok {
		t.Errorf("refresh replaced the marker: %q", got)
	}
}

func TestVerifySession_AdoptsCookieMarker(t *testing.T) {
	// A verify that succeeds without any prior marker means the cookie
	// jar held a live session; the marker records that mode.
	f := newAuthFixture(t)

	if !f.m.VerifySession(context.Background()) {
		t.Fatal("VerifySession failed")
	}
	assertAuthed(t, f.m, true)
	if got := f.m.Store().Marker(); got != MarkerCookieAuth {
		t.Errorf("marker = %q, want %q", got, MarkerCookieAuth)
	}
}

func TestLogout_AlwaysClearsLocally(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.m.SetToken(ctx, MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	f.srv.Close()

	f.m.Logout(ctx)
	assertAuthed(t, f.m, false)
	if got := f.api.Token(); got != "" {
		t.Errorf("bearer token survived logout: %q", got)
	}
}

func TestUnauthorizedResourceCallTearsDownSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.m.SetToken(ctx, MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	_, err := f.api.ListAgents(ctx, client.AgentFilter{})
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("ListAgents error = %v, want unauthorized", err)
	}
	assertAuthed(t, f.m, false)
	if got := f.m.State().Error; got != sessionExpiredMsg {
		t.Errorf("error message = %q, want %q", got, sessionExpiredMsg)
	}
}

func TestUnauthorizedHook_IgnoredWithoutSession(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.api.ListAgents(context.Background(), client.AgentFilter{})
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("ListAgents error = %v, want unauthorized", err)
	}
	if got := f.m.State().Error; got != "" {
		t.Errorf("hook set an error with no session to expire: %q", got)
	}
}

func TestLogin_ReturnsOAuthURLAndClearsError(t *testing.T) {
	f := newAuthFixture(t)

	f.m.SetToken(context.Background(), "garbage")
	if f.m.State().Error == "" {
		t.Fatal("setup: expected a sticky error")
	}
	url := f.m.Login()
	if want := f.srv.URL + "/api/v1/auth/login"; url != want {
		t.Errorf("Login() = %q, want %q", url, want)
	}
	if got := f.m.State().Error; got != "" {
		t.Errorf("Login left the error in place: %q", got)
	}
}

func TestOnChange_ListenerSeesTransitions(t *testing.T) {
	f := newAuthFixture(t)

	var states []State
	off := f.m.OnChange(func(st State) { states = append(states, st) })

	if err := f.m.SetToken(context.Background(), MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if len(states) == 0 {
		t.Fatal("listener never fired")
	}
	sawLoading := false
	for _, st := range states {
		if st.IsLoading {
			sawLoading = true
		}
	}
	if !sawLoading {
		t.Error("no loading transition observed")
	}
	last := states[len(states)-1]
	if !last.IsAuthenticated || last.IsLoading {
		t.Errorf("final state = %+v, want authenticated and settled", last)
	}

	off()
	n := len(states)
	f.m.ClearError()
	if len(states) != n {
		t.Error("listener fired after removal")
	}
}

func TestStateInvariant_AcrossLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	steps := []struct {
		name       string
		run        func()
		wantAuthed bool
	}{
		{"initial", func() {}, false},
		{"first verify denied", func() {
			f.b.setDeny(true)
			f.m.VerifySession(ctx)
		}, false},
		{"cookie sign-in", func() {
			f.b.setDeny(false)
			f.m.SetToken(ctx, MarkerCookieAuth)
		}, true},
		{"refresh", func() {
			f.m.VerifySession(ctx)
		}, true},
		{"server revokes", func() {
			f.b.setDeny(true)
			f.m.VerifySession(ctx)
		}, false},
		{"bearer sign-in", func() {
			f.b.setDeny(false)
			f.m.SetToken(ctx, futureToken(t))
		}, true},
		{"logout", func() {
			f.m.Logout(ctx)
		}, false},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			step.run()
			assertAuthed(t, f.m, step.wantAuthed)
		})
	}
}
