package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIError_Classes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"Unauthorized", 401, ErrUnauthorized},
		{"Forbidden", 403, ErrForbidden},
		{"NotFound", 404, ErrNotFound},
		{"Validation", 422, ErrValidation},
		{"ServerError", 500, ErrServer},
		{"BadGateway", 502, ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{Method: "GET", Path: "/api/v1/agents", StatusCode: tt.status}
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: errors.Is(%v) = false, want true", tt.status, tt.want)
			}
		})
	}
}

func TestAPIError_DoesNotMatchOtherClasses(t *testing.T) {
	err := &APIError{StatusCode: 404}
	for _, class := range []error{ErrUnauthorized, ErrForbidden, ErrValidation, ErrServer} {
		if errors.Is(err, class) {
			t.Errorf("404 matched %v", class)
		}
	}
}

func TestDo_DecodesDetailFromErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(422)
		json.NewEncoder(w).Encode(map[string]string{"detail": "name must not be empty"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CreateAgent(context.Background(), AgentCreate{})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *APIError", err)
	}
	if apiErr.Detail != "name must not be empty" {
		t.Errorf("Detail = %q, want %q", apiErr.Detail, "name must not be empty")
	}
	if apiErr.StatusCode != 422 {
		t.Errorf("StatusCode = %d, want 422", apiErr.StatusCode)
	}
}

func TestDo_NonJSONErrorBodyKeptVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", 500)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetAgent(context.Background(), "a1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *APIError", err)
	}
	if apiErr.Detail != "upstream exploded" {
		t.Errorf("Detail = %q, want raw body", apiErr.Detail)
	}
}

func TestSetAuth_BearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(UserInfo{Email: "me@example.com", Authenticated: true})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-123")
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestSetAuth_NoHeaderInCookieMode(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(UserInfo{Email: "me@example.com", Authenticated: true})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty in cookie mode", gotAuth)
	}
}

func TestUnauthorizedHook_FiresForResourceCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	fired := 0
	c.OnUnauthorized(func() { fired++ })

	if _, err := c.ListAgents(context.Background(), AgentFilter{}); err == nil {
		t.Fatal("expected 401 error")
	}
	if fired != 1 {
		t.Errorf("hook fired %d times, want 1", fired)
	}
}

func TestUnauthorizedHook_SkippedForAuthEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	fired := 0
	c.OnUnauthorized(func() { fired++ })

	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("expected 401 error")
	}
	if err := c.Logout(context.Background()); err == nil {
		t.Fatal("expected 401 error")
	}
	if fired != 0 {
		t.Errorf("hook fired %d times for auth endpoints, want 0", fired)
	}
}

func TestListAgents_QueryEncoding(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(AgentList{Page: 2, PageSize: 50})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListAgents(context.Background(), AgentFilter{
		Page:      2,
		PageSize:  50,
		Status:    AgentActive,
		AgentType: AgentConversational,
		Search:    "research",
		Tags:      []string{"prod", "beta"},
	})
	if err != nil {
		t.Fatalf("ListAgents() error: %v", err)
	}

	want := map[string]string{
		"page":       "2",
		"page_size":  "50",
		"status":     "active",
		"agent_type": "conversational",
		"search":     "research",
		"tags":       "prod,beta",
	}
	for k, v := range want {
		if got := gotQuery[k]; len(got) != 1 || got[0] != v {
			t.Errorf("query %s = %v, want %q", k, got, v)
		}
	}
}

func TestListAgents_ZeroFilterSendsNoQuery(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(AgentList{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.ListAgents(context.Background(), AgentFilter{}); err != nil {
		t.Fatalf("ListAgents() error: %v", err)
	}
	if rawQuery != "" {
		t.Errorf("RawQuery = %q, want empty", rawQuery)
	}
}

func TestListTasks_Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TaskList{
			Tasks:      []Task{{ID: "t1", AgentID: "a1", Title: "summarise", Status: TaskRunning}},
			Total:      37,
			Page:       2,
			PageSize:   20,
			TotalPages: 2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.ListTasks(context.Background(), TaskFilter{Page: 2})
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if got.Total != 37 || got.TotalPages != 2 {
		t.Errorf("envelope total=%d totalPages=%d, want 37/2", got.Total, got.TotalPages)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Status != TaskRunning {
		t.Errorf("tasks = %+v, want one running task", got.Tasks)
	}
}

func TestTaskLifecyclePaths(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(Task{ID: "t1"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantMethod string
		wantPath   string
	}{
		{"Cancel", func() error { _, err := c.CancelTask(ctx, "t1"); return err }, "POST", "/api/v1/tasks/t1/cancel"},
		{"Retry", func() error { _, err := c.RetryTask(ctx, "t1"); return err }, "POST", "/api/v1/tasks/t1/retry"},
		{"Get", func() error { _, err := c.GetTask(ctx, "t1"); return err }, "GET", "/api/v1/tasks/t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("%s error: %v", tt.name, err)
			}
			if gotMethod != tt.wantMethod || gotPath != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", gotMethod, gotPath, tt.wantMethod, tt.wantPath)
			}
		})
	}
}

func TestDeleteAgent_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.DeleteAgent(context.Background(), "a1"); err != nil {
		t.Errorf("DeleteAgent() error: %v", err)
	}
}

func TestNetworkFailure_WrapsErrNetwork(t *testing.T) {
	// Port 1 is never listening.
	c := New("http://127.0.0.1:1")
	_, err := c.ListAgents(context.Background(), AgentFilter{})
	if err == nil {
		t.Fatal("expected network error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("errors.Is(err, ErrNetwork) = false for %v", err)
	}
}

func TestLogout_SendsCSRFHeaderFromCookie(t *testing.T) {
	var gotCSRF string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/me":
			http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: "csrf-789", Path: "/"})
			json.NewEncoder(w).Encode(UserInfo{Email: "me@example.com", Authenticated: true})
		case "/api/v1/auth/logout":
			gotCSRF = r.Header.Get("X-CSRF-Token")
			json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if gotCSRF != "csrf-789" {
		t.Errorf("X-CSRF-Token = %q, want %q", gotCSRF, "csrf-789")
	}
}

func TestLogout_NoCookieNoHeader(t *testing.T) {
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["X-Csrf-Token"]
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if sawHeader {
		t.Error("X-CSRF-Token header sent without a csrf_token cookie")
	}
}

func TestHealth(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if gotPath != "/health" {
		t.Errorf("path = %q, want /health", gotPath)
	}
}

func TestLoginURL(t *testing.T) {
	c := New("http://127.0.0.1:8000/")
	want := "http://127.0.0.1:8000/api/v1/auth/login"
	if got := c.LoginURL(); got != want {
		t.Errorf("LoginURL() = %q, want %q", got, want)
	}
}
