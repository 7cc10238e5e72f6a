package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

const callbackPage = `<!DOCTYPE html>
<html><head><title>Personal-Q</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>%s</h2><p>You can close this tab and return to the terminal.</p>
</body></html>`

// CallbackServer is a short-lived localhost listener that receives the
// browser redirect ending the OAuth flow. The redirect may arrive more
// than once (browsers retry, users double-click); a one-shot latch
// guarantees the token is handed to the manager exactly once.
type CallbackServer struct {
	mgr *Manager
	srv *http.Server
	ln  net.Listener

	mu      sync.Mutex
	handled bool

	done chan error
}

func NewCallbackServer(mgr *Manager) *CallbackServer {
	return &CallbackServer{
		mgr:  mgr,
		done: make(chan error, 1),
	}
}

// Start binds the listener on 127.0.0.1:port and begins serving in
// the background. Port 0 picks an ephemeral port, mostly useful in
// tests. It returns the base URL the backend should redirect to.
func (s *CallbackServer) Start(port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("bind callback listener: %w", err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.deliver(err)
		}
	}()
	return "http://" + ln.Addr().String(), nil
}

// Done yields the outcome of the first processed callback: nil when
// the token verified, the verification error otherwise.
func (s *CallbackServer) Done() <-chan error {
	return s.done
}

// Shutdown stops the listener. Safe to call whether or not a callback
// ever arrived.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ServeHTTP handles the redirect. The first request carrying a token
// wins the latch and drives verification; every later request gets a
// friendly page and no further processing.
func (s *CallbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.handled {
		s.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, callbackPage, "Already signed in.")
		return
	}
	s.handled = true
	s.mu.Unlock()

	err := s.mgr.SetToken(r.Context(), token)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, callbackPage, "Sign-in failed.")
	} else {
		fmt.Fprintf(w, callbackPage, "Signed in.")
	}
	s.deliver(err)
}

func (s *CallbackServer) deliver(err error) {
	select {
	case s.done <- err:
	default:
	}
}
