package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/cache"
	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/config"
)

// testModel wires the full dependency graph against an address nobody
// listens on. Commands returned by Update are never executed here, so
// no test touches the network.
func testModel() Model {
	api := client.New("http://127.0.0.1:1")
	ev := client.NewEventClient(api)
	mgr := auth.NewManager(api)
	c := cache.New()
	s := cache.NewSynchronizer(c, ev)
	cfg := &config.Config{
		API:   config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		OAuth: config.OAuthConfig{CallbackPort: 0},
		UI:    config.UIConfig{PageSize: 20, ActivityPageSize: 50},
	}
	m := New(Deps{API: api, Events: ev, Auth: mgr, Cache: c, Sync: s, Config: cfg})
	m.resize(100, 30)
	return m
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want app.Model", next)
	}
	return nm
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return apply(t, m, msg)
}

func authedModel(t *testing.T) Model {
	t.Helper()
	m := testModel()
	st := auth.State{
		User:            &client.UserInfo{Email: "pm@example.com", Authenticated: true},
		IsAuthenticated: true,
	}
	return apply(t, m, AuthChangedMsg{State: st})
}

func shutdownCallback(t *testing.T, m Model) {
	t.Helper()
	if m.callback == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.callback.Shutdown(ctx)
}

func TestViewGatesOnAuth(t *testing.T) {
	m := testModel()
	if v := m.View(); !strings.Contains(v, "Personal-Q") {
		t.Fatalf("unauthenticated view missing login card:\n%s", v)
	}

	m = authedModel(t)
	v := m.View()
	if strings.Contains(v, "paste a JWT") {
		t.Fatalf("authenticated view still shows login:\n%s", v)
	}
	if !strings.Contains(v, "[Overview]") {
		t.Fatalf("authenticated view missing status bar:\n%s", v)
	}
	if !strings.Contains(v, "pm@example.com") {
		t.Fatalf("status bar missing user email:\n%s", v)
	}
}

func TestRouteKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"2", "[Agents]"},
		{"3", "[Tasks]"},
		{"4", "[Activity]"},
		{"5", "[Settings]"},
		{"1", "[Overview]"},
	}

	m := authedModel(t)
	for _, tt := range tests {
		m = press(t, m, tt.key)
		if v := m.View(); !strings.Contains(v, tt.want) {
			t.Errorf("after %q: view missing %q", tt.key, tt.want)
		}
	}
}

func TestTabWrapsAround(t *testing.T) {
	m := authedModel(t)
	for i := 0; i < int(numRoutes); i++ {
		m = press(t, m, "tab")
	}
	if m.route != RouteOverview {
		t.Fatalf("route after full tab cycle = %d, want overview", m.route)
	}
}

func TestAgentsLoadedRendersRows(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "2")

	key := cache.AgentListKey(m.agents.Filter())
	list := &client.AgentList{
		Agents: []client.Agent{{
			ID: "a1", Name: "Scout", AgentType: client.AgentConversational,
			Status: client.AgentActive, Model: "claude-sonnet-4-5", SuccessRate: 88,
		}},
		Total: 1, Page: 1, TotalPages: 1,
	}
	m = apply(t, m, AgentsLoadedMsg{Key: key, List: list})

	v := m.View()
	if !strings.Contains(v, "Scout") {
		t.Fatalf("agents view missing row:\n%s", v)
	}
	if !strings.Contains(v, "1 agents") {
		t.Fatalf("agents view missing pager:\n%s", v)
	}
}

func TestStaleListResultDropped(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "2")

	list := &client.AgentList{
		Agents: []client.Agent{{ID: "a1", Name: "Ghost"}},
		Total:  1, Page: 1, TotalPages: 1,
	}
	m = apply(t, m, AgentsLoadedMsg{Key: "agents:page=99", List: list})

	if strings.Contains(m.View(), "Ghost") {
		t.Fatal("result for an abandoned filter was installed")
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "2")
	key := cache.AgentListKey(m.agents.Filter())
	m = apply(t, m, AgentsLoadedMsg{Key: key, List: &client.AgentList{
		Agents: []client.Agent{{ID: "a1", Name: "Scout"}},
		Total:  1, Page: 1, TotalPages: 1,
	}})

	m = press(t, m, "d")
	if m.overlay != OverlayConfirm {
		t.Fatalf("overlay = %d, want confirm", m.overlay)
	}
	if v := m.View(); !strings.Contains(v, "Delete agent Scout?") {
		t.Fatalf("confirm prompt missing:\n%s", v)
	}

	m = press(t, m, "n")
	if m.overlay != OverlayNone {
		t.Fatalf("overlay after n = %d, want none", m.overlay)
	}
}

func TestEnterOpensDetailOverlay(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "2")
	key := cache.AgentListKey(m.agents.Filter())
	m = apply(t, m, AgentsLoadedMsg{Key: key, List: &client.AgentList{
		Agents: []client.Agent{{ID: "a1", Name: "Scout", SystemPrompt: "# Role\nScout things."}},
		Total:  1, Page: 1, TotalPages: 1,
	}})

	m = press(t, m, "enter")
	if m.overlay != OverlayDetail {
		t.Fatalf("overlay = %d, want detail", m.overlay)
	}
	if v := m.View(); !strings.Contains(v, "Scout") {
		t.Fatalf("detail overlay missing agent:\n%s", v)
	}

	m = press(t, m, "esc")
	if m.overlay != OverlayNone {
		t.Fatal("esc did not close the overlay")
	}
}

func TestFeedStateReachesStatusBar(t *testing.T) {
	m := authedModel(t)
	if !strings.Contains(m.View(), "closed") {
		t.Fatal("initial feed state not shown")
	}
	m = apply(t, m, FeedStateMsg{State: client.StateOpen})
	if !strings.Contains(m.View(), "open") {
		t.Fatal("feed open state not shown")
	}
}

func TestActionErrorShowsNoticeUntilNextKey(t *testing.T) {
	m := authedModel(t)
	m = apply(t, m, ActionDoneMsg{Action: "deleted Scout", Err: errors.New("backend said no")})
	if !strings.Contains(m.View(), "backend said no") {
		t.Fatal("error notice not rendered")
	}
	m = press(t, m, "1")
	if strings.Contains(m.View(), "backend said no") {
		t.Fatal("notice survived a key press")
	}
}

func TestGaugeAnimatesThenSettles(t *testing.T) {
	m := authedModel(t)
	next, cmd := m.Update(OverviewLoadedMsg{
		Metrics: &client.DashboardMetrics{AvgSuccessRate: 80, TotalAgents: 3},
	})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("gauge did not start animating")
	}

	settled := false
	for i := 0; i < 1000; i++ {
		next, cmd = m.Update(gaugeTickMsg{})
		m = next.(Model)
		if cmd == nil {
			settled = true
			break
		}
	}
	if !settled {
		t.Fatal("gauge never settled")
	}
	if !strings.Contains(m.View(), "80.0%") {
		t.Fatalf("gauge did not land on target:\n%s", m.View())
	}
}

func TestSessionExpiryKicksBackToLogin(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "3")

	m = apply(t, m, AuthChangedMsg{State: auth.State{
		Error: "Session expired. Please log in again.",
	}})
	defer shutdownCallback(t, m)

	v := m.View()
	if !strings.Contains(v, "Session expired") {
		t.Fatalf("login view missing expiry message:\n%s", v)
	}
	if m.route != RouteOverview {
		t.Fatalf("route = %d, want reset to overview", m.route)
	}
}

func TestLoginScreenShowsOAuthEndpoints(t *testing.T) {
	m := testModel()
	m = apply(t, m, AuthChangedMsg{State: auth.State{}})
	defer shutdownCallback(t, m)

	v := m.View()
	if !strings.Contains(v, "/api/v1/auth/login") {
		t.Fatalf("login view missing OAuth URL:\n%s", v)
	}
	if !strings.Contains(v, "waiting for the browser") {
		t.Fatalf("login view missing callback address:\n%s", v)
	}
}

func TestDetailTasksKeyScopesQueue(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "2")
	key := cache.AgentListKey(m.agents.Filter())
	m = apply(t, m, AgentsLoadedMsg{Key: key, List: &client.AgentList{
		Agents: []client.Agent{{ID: "a1", Name: "Scout"}},
		Total:  1, Page: 1, TotalPages: 1,
	}})

	m = press(t, m, "enter")
	m = press(t, m, "t")
	if m.route != RouteTasks {
		t.Fatalf("route = %d, want tasks", m.route)
	}
	if m.overlay != OverlayNone {
		t.Fatal("detail overlay still open")
	}
	if m.tasks.AgentScope() != "a1" {
		t.Fatalf("scope = %q, want a1", m.tasks.AgentScope())
	}

	m = press(t, m, "esc")
	if m.tasks.AgentScope() != "" {
		t.Fatal("esc did not clear the agent scope")
	}
}

func TestSettingsFormRoundTrip(t *testing.T) {
	m := authedModel(t)
	m = press(t, m, "5")
	m = apply(t, m, APIKeysLoadedMsg{Keys: []client.APIKey{{
		ID: "k1", ServiceName: "anthropic", IsActive: true, HasAPIKey: true,
	}}})

	if !strings.Contains(m.View(), "anthropic") {
		t.Fatal("settings list missing service")
	}

	m = press(t, m, "n")
	if !m.settings.FormOpen() {
		t.Fatal("n did not open the form")
	}
	m = press(t, m, "esc")
	if m.settings.FormOpen() {
		t.Fatal("esc did not close the form")
	}
}
