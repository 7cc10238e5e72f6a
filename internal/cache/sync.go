package cache

import (
	"log"
	"sync"

	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/client"
)

// allEventTypes is the full subscription the dashboard declares; every
// feed event maps to at least one cache mutation.
var allEventTypes = []client.EventType{
	client.EventAgentCreated,
	client.EventAgentUpdated,
	client.EventAgentDeleted,
	client.EventAgentStatusChanged,
	client.EventTaskStarted,
	client.EventTaskCompleted,
	client.EventTaskFailed,
	client.EventTaskCancelled,
	client.EventActivityCreated,
}

// Synchronizer keeps the cache eventually consistent with the server
// by applying one fixed mutation per inbound event type. Views never
// poll; they read through the cache and re-read when it tells them a
// key changed.
type Synchronizer struct {
	cache  *Cache
	events *client.EventClient

	mu      sync.Mutex
	started bool
	pending bool // subscribe on next Open
	offs    []func()
}

func NewSynchronizer(c *Cache, events *client.EventClient) *Synchronizer {
	return &Synchronizer{cache: c, events: events}
}

// Start registers the event handlers and opens the feed. Idempotent.
// The subscription declaration is sent once the connection reports
// Open; reconnects replay it inside the event client.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.pending = true
	for _, et := range allEventTypes {
		s.offs = append(s.offs, s.events.On(et, s.apply))
	}
	s.offs = append(s.offs, s.events.OnStateChange(s.onConnState))
	s.mu.Unlock()

	s.events.Connect()
	if s.events.State() == client.StateOpen {
		s.subscribeIfPending()
	}
}

// Stop unregisters the handlers and closes the feed. Idempotent.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.pending = false
	offs := s.offs
	s.offs = nil
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	s.events.Disconnect()
}

// Bind ties the feed lifecycle to the session: the feed runs exactly
// while the user is authenticated, and the cache is emptied when the
// session ends. The returned function unbinds.
func (s *Synchronizer) Bind(m *auth.Manager) func() {
	return m.OnChange(func(st auth.State) {
		if st.IsAuthenticated {
			s.Start()
			return
		}
		s.Stop()
		s.cache.Clear()
	})
}

func (s *Synchronizer) onConnState(st client.ConnState) {
	if st == client.StateOpen {
		s.subscribeIfPending()
	}
}

func (s *Synchronizer) subscribeIfPending() {
	s.mu.Lock()
	want := s.pending
	s.pending = false
	s.mu.Unlock()
	if !want {
		return
	}
	if err := s.events.Subscribe(allEventTypes...); err != nil {
		log.Printf("cache: subscribe after open: %v", err)
	}
}

// apply is the event-to-mutation policy. Invalidations mark stale and
// never block; overwrites take the payload as delivered, trusting the
// feed's arrival order.
func (s *Synchronizer) apply(ev client.Event) {
	switch ev.Type {
	case client.EventAgentCreated:
		s.cache.InvalidatePrefix(agentListPrefix)
		s.cache.Invalidate(KeyDashboardMetrics)

	case client.EventAgentUpdated, client.EventAgentStatusChanged:
		s.cache.Overwrite(AgentKey(ev.Agent.ID), *ev.Agent)
		s.cache.InvalidatePrefix(agentListPrefix)

	case client.EventAgentDeleted:
		s.cache.Remove(AgentKey(ev.AgentID))
		s.cache.InvalidatePrefix(agentListPrefix)
		s.cache.Invalidate(KeyDashboardMetrics)

	case client.EventTaskStarted, client.EventTaskCompleted,
		client.EventTaskFailed, client.EventTaskCancelled:
		s.cache.Invalidate(KeyDashboardMetrics)
		if ev.Task != nil && ev.Task.AgentID != "" {
			s.cache.Invalidate(AgentMetricsKey(ev.Task.AgentID))
		}

	case client.EventActivityCreated:
		s.cache.InvalidatePrefix(activityListPrefix)
	}
}
