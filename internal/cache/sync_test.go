package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/client"
)

func TestApply_PolicyTable(t *testing.T) {
	seedAgent := client.Agent{ID: "a1", Name: "Scout", Status: client.AgentActive}
	updatedAgent := client.Agent{ID: "a1", Name: "Scout II", Status: client.AgentPaused}

	singleKey := AgentKey("a1")
	listDefault := AgentListKey(client.AgentFilter{})
	listActive := AgentListKey(client.AgentFilter{Status: client.AgentActive})
	tasksKey := TaskListKey(client.TaskFilter{})
	actsKey := ActivityListKey(client.ActivityFilter{})
	agentMetrics := AgentMetricsKey("a1")

	allKeys := []string{
		singleKey, listDefault, listActive, tasksKey, actsKey,
		KeyDashboardMetrics, KeyMemoryMetrics, agentMetrics,
	}

	seed := func() *Cache {
		c := New()
		c.Overwrite(singleKey, seedAgent)
		for _, k := range allKeys[1:] {
			c.Overwrite(k, "seed")
		}
		return c
	}

	// assertEffects checks the listed keys went stale or away and,
	// just as important, that every other seeded key was untouched.
	assertEffects := func(t *testing.T, c *Cache, stale, removed []string) {
		t.Helper()
		staleSet := map[string]bool{}
		for _, k := range stale {
			staleSet[k] = true
		}
		removedSet := map[string]bool{}
		for _, k := range removed {
			removedSet[k] = true
		}
		for _, k := range allKeys {
			switch {
			case removedSet[k]:
				if _, ok := c.Peek(k); ok {
					t.Errorf("%s: still present, want removed", k)
				}
			case staleSet[k]:
				if c.Fresh(k) {
					t.Errorf("%s: still fresh, want stale", k)
				}
				if _, ok := c.Peek(k); !ok {
					t.Errorf("%s: invalidation dropped the data", k)
				}
			default:
				if !c.Fresh(k) {
					t.Errorf("%s: affected but should not be", k)
				}
			}
		}
	}

	tests := []struct {
		name      string
		ev        client.Event
		stale     []string
		removed   []string
		wantAgent *client.Agent
	}{
		{
			name:  "agent created invalidates lists and dashboard",
			ev:    client.Event{Type: client.EventAgentCreated, Agent: &seedAgent, AgentID: "a1"},
			stale: []string{listDefault, listActive, KeyDashboardMetrics},
		},
		{
			name:      "agent updated overwrites entry and invalidates lists",
			ev:        client.Event{Type: client.EventAgentUpdated, Agent: &updatedAgent, AgentID: "a1"},
			stale:     []string{listDefault, listActive},
			wantAgent: &updatedAgent,
		},
		{
			name:      "agent status change overwrites entry and invalidates lists",
			ev:        client.Event{Type: client.EventAgentStatusChanged, Agent: &updatedAgent, AgentID: "a1"},
			stale:     []string{listDefault, listActive},
			wantAgent: &updatedAgent,
		},
		{
			name:    "agent deleted removes entry, invalidates lists and dashboard",
			ev:      client.Event{Type: client.EventAgentDeleted, AgentID: "a1"},
			stale:   []string{listDefault, listActive, KeyDashboardMetrics},
			removed: []string{singleKey},
		},
		{
			name:  "task started invalidates aggregates only",
			ev:    client.Event{Type: client.EventTaskStarted, Task: &client.TaskEventData{TaskID: "t1", AgentID: "a1"}},
			stale: []string{KeyDashboardMetrics, agentMetrics},
		},
		{
			name:  "task completed invalidates aggregates only",
			ev:    client.Event{Type: client.EventTaskCompleted, Task: &client.TaskEventData{TaskID: "t1", AgentID: "a1"}},
			stale: []string{KeyDashboardMetrics, agentMetrics},
		},
		{
			name:  "task failed invalidates aggregates only",
			ev:    client.Event{Type: client.EventTaskFailed, Task: &client.TaskEventData{TaskID: "t1", AgentID: "a1"}},
			stale: []string{KeyDashboardMetrics, agentMetrics},
		},
		{
			name:  "task cancelled invalidates aggregates only",
			ev:    client.Event{Type: client.EventTaskCancelled, Task: &client.TaskEventData{TaskID: "t1", AgentID: "a1"}},
			stale: []string{KeyDashboardMetrics, agentMetrics},
		},
		{
			name:  "task event without agent id touches dashboard only",
			ev:    client.Event{Type: client.EventTaskCompleted, Task: &client.TaskEventData{TaskID: "t1"}},
			stale: []string{KeyDashboardMetrics},
		},
		{
			name:  "activity created invalidates the feed",
			ev:    client.Event{Type: client.EventActivityCreated, Activity: &client.Activity{ID: "ac1"}},
			stale: []string{actsKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := seed()
			s := NewSynchronizer(c, nil)
			s.apply(tt.ev)
			assertEffects(t, c, tt.stale, tt.removed)
			if tt.wantAgent != nil {
				got, ok := c.Peek(singleKey)
				if !ok {
					t.Fatal("overwritten entry missing")
				}
				if !reflect.DeepEqual(got, *tt.wantAgent) {
					t.Errorf("entry = %+v, want %+v", got, *tt.wantAgent)
				}
			}
		})
	}
}

func TestApply_OverwriteIsIdempotentEitherOrder(t *testing.T) {
	// A locally-triggered invalidation and a pushed update for the same
	// change may arrive in either order; both orders must converge.
	agent := client.Agent{ID: "a1", Name: "Scout II"}
	ev := client.Event{Type: client.EventAgentUpdated, Agent: &agent, AgentID: "a1"}

	first := New()
	s1 := NewSynchronizer(first, nil)
	first.Overwrite(AgentKey("a1"), client.Agent{ID: "a1", Name: "Scout"})
	first.Invalidate(AgentKey("a1"))
	s1.apply(ev)

	second := New()
	s2 := NewSynchronizer(second, nil)
	second.Overwrite(AgentKey("a1"), client.Agent{ID: "a1", Name: "Scout"})
	s2.apply(ev)
	second.Invalidate(AgentKey("a1"))

	v1, _ := first.Peek(AgentKey("a1"))
	v2, _ := second.Peek(AgentKey("a1"))
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("orders diverged: %+v vs %+v", v1, v2)
	}
}

// feedBackend is an auth endpoint plus a real upgraded feed, enough to
// exercise the synchronizer lifecycle end to end.
type feedBackend struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	subs  [][]string
}

func (b *feedBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.UserInfo{Email: "dev@personal-q.local", Authenticated: true})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()
		go func() {
			for {
				var msg struct {
					Action     string   `json:"action"`
					EventTypes []string `json:"event_types"`
				}
				if err := conn.ReadJSON(&msg); err != nil {
					return
				}
				if msg.Action == "subscribe" {
					b.mu.Lock()
					b.subs = append(b.subs, msg.EventTypes)
					b.mu.Unlock()
				}
			}
		}()
	})
	return mux
}

func (b *feedBackend) connCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *feedBackend) subscriptions() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]string, len(b.subs))
	copy(out, b.subs)
	return out
}

func (b *feedBackend) push(t *testing.T, payload string) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) == 0 {
		t.Fatal("no feed connection to push to")
	}
	conn := b.conns[len(b.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

type syncFixture struct {
	b     *feedBackend
	cache *Cache
	sync  *Synchronizer
	ec    *client.EventClient
	mgr   *auth.Manager
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	b := &feedBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	api := client.New(srv.URL)
	ec := client.NewEventClient(api)
	c := New()
	s := NewSynchronizer(c, ec)
	t.Cleanup(s.Stop)
	return &syncFixture{b: b, cache: c, sync: s, ec: ec, mgr: auth.NewManager(api)}
}

func TestStart_ConnectsAndSubscribesOnce(t *testing.T) {
	f := newSyncFixture(t)

	f.sync.Start()
	f.sync.Start()

	waitUntil(t, func() bool { return f.b.connCount() >= 1 }, "feed never connected")
	waitUntil(t, func() bool { return len(f.b.subscriptions()) >= 1 }, "no subscription received")

	if got := f.b.connCount(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
	subs := f.b.subscriptions()
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
	if len(subs[0]) != len(allEventTypes) {
		t.Errorf("subscribed to %d event types, want %d", len(subs[0]), len(allEventTypes))
	}
}

func TestFeedEvent_MutatesCache(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.Start()
	waitUntil(t, func() bool { return len(f.b.subscriptions()) >= 1 }, "no subscription received")

	f.cache.Overwrite(AgentListKey(client.AgentFilter{}), "seed")
	f.b.push(t, `{"event_type":"agent_updated","data":{"id":"a1","name":"Scout II","status":"active"}}`)

	waitUntil(t, func() bool {
		v, ok := f.cache.Peek(AgentKey("a1"))
		if !ok {
			return false
		}
		a, ok := v.(client.Agent)
		return ok && a.Name == "Scout II"
	}, "pushed update never reached the cache")

	if f.cache.Fresh(AgentListKey(client.AgentFilter{})) {
		t.Error("list entry still fresh after pushed update")
	}
}

func TestBind_FeedFollowsSession(t *testing.T) {
	f := newSyncFixture(t)
	unbind := f.sync.Bind(f.mgr)
	defer unbind()
	ctx := context.Background()

	if err := f.mgr.SetToken(ctx, auth.MarkerCookieAuth); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	waitUntil(t, func() bool { return f.b.connCount() == 1 }, "sign-in never opened the feed")
	waitUntil(t, func() bool { return len(f.b.subscriptions()) >= 1 }, "no subscription received")

	f.cache.Overwrite(AgentKey("a1"), "cached")
	f.mgr.Logout(ctx)

	waitUntil(t, func() bool { return f.ec.State() == client.StateClosed }, "logout never closed the feed")
	if _, ok := f.cache.Peek(AgentKey("a1")); ok {
		t.Error("cache survived logout")
	}
}

func TestStop_BeforeStartIsHarmless(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.Stop()
	if got := f.ec.State(); got != client.StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}
