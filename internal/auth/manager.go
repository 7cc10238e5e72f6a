package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

// MarkerCookieAuth is the marker stored when the session credential is
// a server-set cookie rather than a bearer token. The marker value is
// otherwise the literal token.
const MarkerCookieAuth = "cookie-auth"

// ErrTokenExpired is returned by SetToken when a bearer token's exp
// claim is already in the past. No network call is made in that case.
var ErrTokenExpired = errors.New("token expired")

const sessionExpiredMsg = "Session expired. Please log in again."

// State is a point-in-time snapshot of the auth machine, safe to hand
// to the UI. IsAuthenticated is true exactly when both the session
// marker and the identity are present.
type State struct {
	User            *client.UserInfo
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Manager drives the session lifecycle: establishing a session from a
// token or cookie, re-verifying it, and tearing it down. All methods
// are safe for concurrent use; listeners registered with OnChange are
// invoked without the manager lock held.
type Manager struct {
	api      *client.Client
	store    *Store
	verifier *Verifier

	mu        sync.Mutex
	loading   bool
	errMsg    string
	listeners map[int]func(State)
	nextID    int
}

// NewManager wires a manager to the API client, including the client's
// global unauthorized hook: a 401 on any resource call tears the local
// session down immediately.
func NewManager(api *client.Client) *Manager {
	m := &Manager{
		api:       api,
		store:     NewStore(),
		listeners: make(map[int]func(State)),
	}
	m.verifier = NewVerifier(api, m.store)
	api.OnUnauthorized(func() {
		if !m.store.HasSession() {
			return
		}
		api.SetToken("")
		m.store.Clear()
		m.setError(sessionExpiredMsg)
	})
	return m
}

// Store exposes the underlying session store, mainly so the event feed
// lifecycle can watch for session changes.
func (m *Manager) Store() *Store {
	return m.store
}

// State returns a snapshot of the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	return State{
		User:            m.store.User(),
		IsAuthenticated: m.store.HasSession(),
		IsLoading:       m.loading,
		Error:           m.errMsg,
	}
}

// OnChange registers a listener called after every state transition.
// The returned function unregisters it.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	st := m.stateLocked()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()
	m.notify()
}

// Login clears any sticky error and returns the OAuth entry URL for
// the user agent to open. It changes no session state; the session is
// established later, when the callback delivers a token to SetToken.
func (m *Manager) Login() string {
	m.setError("")
	return m.api.LoginURL()
}

// SetToken establishes a session from a credential. The sentinel
// MarkerCookieAuth means the credential is already in the cookie jar
// and only needs verifying. Any other value is treated as a bearer
// token: expired tokens are rejected locally without touching the
// network, live ones are installed on the client and then verified.
// Verification failure leaves no session behind.
func (m *Manager) SetToken(ctx context.Context, value string) error {
	bearer := value != MarkerCookieAuth
	if bearer && tokenExpired(value, time.Now()) {
		m.setError("Token expired")
		return ErrTokenExpired
	}

	m.setLoading(true)
	defer m.setLoading(false)

	if bearer {
		m.api.SetToken(value)
	}
	user, err := m.verifier.Verify(ctx)
	if err != nil {
		if bearer {
			m.api.SetToken("")
		}
		m.setError("Authentication failed")
		return fmt.Errorf("verify session: %w", err)
	}
	m.store.SetSession(value, user)
	m.setError("")
	return nil
}

// VerifySession checks the current credentials against the server. It
// never returns an error: transport failures and denials both come
// back as false, with local session state already cleared. The sticky
// "session expired" message is set only when a previously established
// session is rejected with 401; a failed first check stays silent.
func (m *Manager) VerifySession(ctx context.Context) bool {
	m.setLoading(true)
	defer m.setLoading(false)

	hadSession := m.store.Marker() != ""
	user, err := m.verifier.Verify(ctx)
	if err != nil {
		if hadSession && client.IsUnauthorized(err) {
			m.setError(sessionExpiredMsg)
		} else {
			m.notify()
		}
		return false
	}
	marker := m.store.Marker()
	if marker == "" {
		marker = MarkerCookieAuth
	}
	m.store.SetSession(marker, user)
	m.setError("")
	return true
}

// Logout asks the server to drop the session, then clears local state
// regardless of what the network did. The request carries the CSRF
// token from the cookie jar when one is present.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		log.Printf("auth: logout request failed: %v", err)
	}
	m.api.SetToken("")
	m.store.Clear()
	m.setError("")
}

// ClearError drops the sticky error message without touching the
// session.
func (m *Manager) ClearError() {
	m.setError("")
}
