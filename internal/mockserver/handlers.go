package mockserver

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

const demoEmail = "demo@personal-q.local"

const loginPage = `<!doctype html>
<html><head><title>Personal-Q demo</title></head>
<body style="font-family: sans-serif; margin: 4em auto; max-width: 34em">
<h1>Personal-Q demo backend</h1>
<p>This is the built-in demo server. There is no OAuth here; the
dashboard is already signed in as <code>demo@personal-q.local</code>.
Close this tab and go back to the terminal.</p>
</body></html>`

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeDetail writes an error in the backend's {"detail": ...} shape.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return true
}

// taskEvent trims a task to the summary payload carried on the feed.
func taskEvent(t *client.Task) client.TaskEventData {
	return client.TaskEventData{
		TaskID:      t.ID,
		AgentID:     t.AgentID,
		Title:       t.Title,
		Status:      t.Status,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Error:       t.ErrorMessage,
	}
}

// logActivity stores a feed entry and pushes it to connected dashboards.
func (s *Server) logActivity(a client.Activity) {
	stored := s.store.AddActivity(a)
	s.hub.Broadcast(client.EventActivityCreated, stored)
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseAgentFilter(r *http.Request) client.AgentFilter {
	q := r.URL.Query()
	f := client.AgentFilter{
		Page:      atoiOrZero(q.Get("page")),
		PageSize:  atoiOrZero(q.Get("page_size")),
		Status:    client.AgentStatus(q.Get("status")),
		AgentType: client.AgentType(q.Get("agent_type")),
		Search:    q.Get("search"),
	}
	if tags := q.Get("tags"); tags != "" {
		f.Tags = strings.Split(tags, ",")
	}
	return f
}

func parseTaskFilter(r *http.Request) client.TaskFilter {
	q := r.URL.Query()
	return client.TaskFilter{
		Page:     atoiOrZero(q.Get("page")),
		PageSize: atoiOrZero(q.Get("page_size")),
		AgentID:  q.Get("agent_id"),
		Status:   client.TaskStatus(q.Get("status")),
	}
}

func parseActivityFilter(r *http.Request) client.ActivityFilter {
	q := r.URL.Query()
	return client.ActivityFilter{
		Page:         atoiOrZero(q.Get("page")),
		PageSize:     atoiOrZero(q.Get("page_size")),
		AgentID:      q.Get("agent_id"),
		ActivityType: client.ActivityType(q.Get("activity_type")),
		Status:       client.ActivityStatus(q.Get("status")),
	}
}

func validAgentStatus(st client.AgentStatus) bool {
	switch st {
	case client.AgentActive, client.AgentInactive, client.AgentTraining,
		client.AgentError, client.AgentPaused:
		return true
	}
	return false
}

func validAgentType(t client.AgentType) bool {
	switch t {
	case client.AgentConversational, client.AgentAnalytical,
		client.AgentCreative, client.AgentAutomation:
		return true
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, loginPage)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, client.UserInfo{Email: demoEmail, Authenticated: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListAgents(parseAgentFilter(r)))
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.store.GetAgent(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var in client.AgentCreate
	if !decodeBody(w, r, &in) {
		return
	}
	switch {
	case in.Name == "":
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	case in.Model == "":
		writeDetail(w, http.StatusUnprocessableEntity, "model is required")
		return
	case in.Temperature < 0 || in.Temperature > 2:
		writeDetail(w, http.StatusUnprocessableEntity, "temperature must be between 0 and 2")
		return
	case in.MaxTokens < 0:
		writeDetail(w, http.StatusUnprocessableEntity, "max_tokens must be positive")
		return
	case in.AgentType != "" && !validAgentType(in.AgentType):
		writeDetail(w, http.StatusUnprocessableEntity, "invalid agent_type")
		return
	}

	a := s.store.CreateAgent(in)
	s.hub.Broadcast(client.EventAgentCreated, a)
	s.logActivity(client.Activity{
		AgentID:      a.ID,
		ActivityType: client.ActivityAgentCreated,
		Status:       client.ActivityInfo,
		Title:        a.Name + " created",
	})
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var in client.AgentUpdate
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Temperature != nil && (*in.Temperature < 0 || *in.Temperature > 2) {
		writeDetail(w, http.StatusUnprocessableEntity, "temperature must be between 0 and 2")
		return
	}
	if in.AgentType != nil && !validAgentType(*in.AgentType) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid agent_type")
		return
	}
	a, ok := s.store.UpdateAgent(chi.URLParam(r, "id"), in)
	if !ok {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	s.hub.Broadcast(client.EventAgentUpdated, a)
	s.logActivity(client.Activity{
		AgentID:      a.ID,
		ActivityType: client.ActivityAgentUpdated,
		Status:       client.ActivityInfo,
		Title:        a.Name + " updated",
	})
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status client.AgentStatus `json:"status"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if !validAgentStatus(in.Status) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}
	a, ok := s.store.SetAgentStatus(chi.URLParam(r, "id"), in.Status)
	if !ok {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	s.hub.Broadcast(client.EventAgentStatusChanged, a)
	s.logActivity(statusActivity(a))
	writeJSON(w, http.StatusOK, a)
}

// statusActivity picks the feed entry for a status flip.
func statusActivity(a *client.Agent) client.Activity {
	act := client.Activity{AgentID: a.ID}
	switch a.Status {
	case client.AgentActive:
		act.ActivityType = client.ActivityAgentStarted
		act.Status = client.ActivitySuccess
		act.Title = a.Name + " started"
	case client.AgentError:
		act.ActivityType = client.ActivityAgentStopped
		act.Status = client.ActivityError
		act.Title = a.Name + " entered error state"
	case client.AgentTraining:
		act.ActivityType = client.ActivityAgentUpdated
		act.Status = client.ActivityInfo
		act.Title = a.Name + " is training"
	default:
		act.ActivityType = client.ActivityAgentStopped
		act.Status = client.ActivityInfo
		act.Title = a.Name + " stopped"
	}
	return act
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.store.GetAgent(id)
	if !ok || !s.store.DeleteAgent(id) {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	s.hub.Broadcast(client.EventAgentDeleted, map[string]string{"agent_id": id})
	s.logActivity(client.Activity{
		AgentID:      id,
		ActivityType: client.ActivityAgentDeleted,
		Status:       client.ActivityWarning,
		Title:        a.Name + " deleted",
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListTasks(parseTaskFilter(r)))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.store.GetTask(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in client.TaskCreate
	if !decodeBody(w, r, &in) {
		return
	}
	switch {
	case in.AgentID == "":
		writeDetail(w, http.StatusUnprocessableEntity, "agent_id is required")
		return
	case in.Title == "":
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	t, ok := s.store.CreateTask(in)
	if !ok {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	s.logActivity(client.Activity{
		AgentID:      t.AgentID,
		TaskID:       t.ID,
		ActivityType: client.ActivityTaskCreated,
		Status:       client.ActivityInfo,
		Title:        "Queued: " + t.Title,
	})
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in client.TaskUpdate
	if !decodeBody(w, r, &in) {
		return
	}
	t, ok := s.store.UpdateTask(chi.URLParam(r, "id"), in)
	if !ok {
		writeDetail(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	t, reason := s.store.CancelTask(chi.URLParam(r, "id"))
	if t == nil {
		if reason == "" {
			writeDetail(w, http.StatusNotFound, "task not found")
			return
		}
		writeDetail(w, http.StatusBadRequest, reason)
		return
	}
	s.hub.Broadcast(client.EventTaskCancelled, taskEvent(t))
	s.logActivity(client.Activity{
		AgentID:      t.AgentID,
		TaskID:       t.ID,
		ActivityType: client.ActivityTaskCancelled,
		Status:       client.ActivityWarning,
		Title:        "Cancelled: " + t.Title,
	})
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	t, reason := s.store.RetryTask(chi.URLParam(r, "id"))
	if t == nil {
		if reason == "" {
			writeDetail(w, http.StatusNotFound, "task not found")
			return
		}
		writeDetail(w, http.StatusBadRequest, reason)
		return
	}
	s.logActivity(client.Activity{
		AgentID:      t.AgentID,
		TaskID:       t.ID,
		ActivityType: client.ActivityTaskCreated,
		Status:       client.ActivityInfo,
		Title:        fmt.Sprintf("Requeued: %s (attempt %d)", t.Title, t.RetryCount+1),
	})
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListActivities(parseActivityFilter(r)))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Dashboard())
}

func (s *Server) handleAgentMetrics(w http.ResponseWriter, r *http.Request) {
	m, ok := s.store.AgentMetrics(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMemoryMetrics(w http.ResponseWriter, r *http.Request) {
	agents, tasks, acts := s.store.Counts()
	stats := map[string]any{
		"agents":           agents,
		"tasks":            tasks,
		"activities":       acts,
		"feed_connections": s.hub.clientCount(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["system_used_percent"] = math.Round(vm.UsedPercent*10) / 10
		stats["system_total_mb"] = vm.Total / (1 << 20)
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			stats["process_rss_mb"] = mi.RSS / (1 << 20)
		}
	}
	writeJSON(w, http.StatusOK, client.MemoryMetrics{
		MemoryStatistics: stats,
		StorageType:      "in-memory",
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListKeys())
}

func (s *Server) handleUpsertKey(w http.ResponseWriter, r *http.Request) {
	var in client.APIKeyUpsert
	if !decodeBody(w, r, &in) {
		return
	}
	if in.ServiceName == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "service_name is required")
		return
	}
	k := s.store.UpsertKey(in)
	s.logActivity(client.Activity{
		ActivityType: client.ActivityIntegrationConnected,
		Status:       client.ActivityInfo,
		Title:        k.ServiceName + " credentials updated",
	})
	writeJSON(w, http.StatusOK, k)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteKey(chi.URLParam(r, "service")) {
		writeDetail(w, http.StatusNotFound, "no credentials stored for service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ServiceName string `json:"service_name"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.ServiceName == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "service_name is required")
		return
	}
	res, ok := s.store.TestKey(in.ServiceName)
	if !ok {
		writeDetail(w, http.StatusNotFound, "no credentials stored for "+in.ServiceName)
		return
	}
	if res.Success {
		s.logActivity(client.Activity{
			ActivityType: client.ActivityIntegrationConnected,
			Status:       client.ActivitySuccess,
			Title:        res.ServiceName + " connection verified",
		})
	} else {
		s.logActivity(client.Activity{
			ActivityType: client.ActivityIntegrationError,
			Status:       client.ActivityError,
			Title:        res.ServiceName + " connection failed: " + res.Message,
		})
	}
	writeJSON(w, http.StatusOK, res)
}
