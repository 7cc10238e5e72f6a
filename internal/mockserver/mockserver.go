// Package mockserver is an in-process stand-in for the Personal-Q
// backend. It serves the same REST surface and event feed against a
// seeded in-memory dataset, with a generator that keeps the demo moving.
// Auth always succeeds as the demo user.
package mockserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Server owns the demo dataset, the HTTP listener and the feed hub.
type Server struct {
	store   *store
	hub     *hub
	gen     *generator
	limiter *rate.Limiter

	srv     *http.Server
	ln      net.Listener
	cancel  context.CancelFunc
	baseURL string
}

// New builds a server with the demo dataset seeded. Call Start to
// listen.
func New() *Server {
	st := newStore()
	st.Seed(time.Now())
	h := newHub()
	return &Server{
		store:   st,
		hub:     h,
		gen:     newGenerator(st, h),
		limiter: rate.NewLimiter(rate.Limit(25), 50),
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.writeLimit)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.handleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.handleLoginPage)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
		})
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Post("/", s.handleCreateAgent)
			r.Get("/{id}", s.handleGetAgent)
			r.Put("/{id}", s.handleUpdateAgent)
			r.Patch("/{id}/status", s.handleAgentStatus)
			r.Delete("/{id}", s.handleDeleteAgent)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Patch("/{id}", s.handleUpdateTask)
			r.Post("/{id}/cancel", s.handleCancelTask)
			r.Post("/{id}/retry", s.handleRetryTask)
		})
		r.Get("/activities", s.handleListActivities)
		r.Route("/metrics", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/agent/{id}", s.handleAgentMetrics)
			r.Get("/memory", s.handleMemoryMetrics)
		})
		r.Route("/settings", func(r chi.Router) {
			r.Get("/api-keys", s.handleListKeys)
			r.Post("/api-keys", s.handleUpsertKey)
			r.Delete("/api-keys/{service}", s.handleDeleteKey)
			r.Post("/test-connection", s.handleTestConnection)
		})
	})

	return r
}

// writeLimit throttles mutating requests the way the real backend does;
// reads are never limited.
func (s *Server) writeLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !s.limiter.Allow() {
				writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens on addr ("" picks a loopback port) and returns the base
// URL to point the client at.
func (s *Server) Start(addr string) (string, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen.Start(ctx)

	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go s.srv.Serve(ln)

	s.baseURL = "http://" + ln.Addr().String()
	return s.baseURL, nil
}

// BaseURL returns the address Start bound to, or "" before Start.
func (s *Server) BaseURL() string { return s.baseURL }

// Close stops the generator, drops feed connections and shuts the
// listener down.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.closeAll()
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.srv.Shutdown(ctx)
	}
}
