package mockserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

const activityCap = 500

// store holds the demo dataset behind a single lock. Every read hands
// out copies so the generator can keep mutating while handlers encode
// responses.
type store struct {
	mu         sync.RWMutex
	agents     []*client.Agent
	tasks      []*client.Task
	activities []*client.Activity
	keys       []*client.APIKey
}

func newStore() *store {
	return &store{}
}

func (s *store) findAgent(id string) int {
	for i, a := range s.agents {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *store) findTask(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *store) findKey(service string) int {
	for i, k := range s.keys {
		if k.ServiceName == service {
			return i
		}
	}
	return -1
}

// paginate clamps page/size the way the backend does: page starts at 1,
// size defaults to 20. Returned bounds are safe to slice with.
func paginate(total, page, size int) (start, end, pages int) {
	if size <= 0 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	pages = (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	start = (page - 1) * size
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	return start, end, pages
}

func agentMatches(a *client.Agent, f client.AgentFilter) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.AgentType != "" && a.AgentType != f.AgentType {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(a.Name), q) &&
			!strings.Contains(strings.ToLower(a.Description), q) {
			return false
		}
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range a.Tags {
			if strings.EqualFold(tag, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *store) ListAgents(f client.AgentFilter) *client.AgentList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []client.Agent
	for _, a := range s.agents {
		if agentMatches(a, f) {
			matched = append(matched, *a)
		}
	}
	// Newest first, like the backend's created_at desc ordering.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end, pages := paginate(len(matched), f.Page, f.PageSize)
	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = 20
	}
	return &client.AgentList{
		Agents:     matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}
}

func (s *store) GetAgent(id string) (*client.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.findAgent(id)
	if i < 0 {
		return nil, false
	}
	a := *s.agents[i]
	return &a, true
}

// AgentByName is how the generator finds its seeded agents; IDs are
// fresh every process.
func (s *store) AgentByName(name string) (*client.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.Name == name {
			out := *a
			return &out, true
		}
	}
	return nil, false
}

func (s *store) CreateAgent(in client.AgentCreate) *client.Agent {
	now := time.Now().UTC()
	a := &client.Agent{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Description:  in.Description,
		AgentType:    in.AgentType,
		Status:       client.AgentInactive,
		Model:        in.Model,
		Temperature:  in.Temperature,
		MaxTokens:    in.MaxTokens,
		SystemPrompt: in.SystemPrompt,
		Tags:         in.Tags,
		AvatarURL:    in.AvatarURL,
		ToolsConfig:  in.ToolsConfig,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.AgentType == "" {
		a.AgentType = client.AgentConversational
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = 4096
	}

	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()

	out := *a
	return &out
}

func (s *store) UpdateAgent(id string, in client.AgentUpdate) (*client.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findAgent(id)
	if i < 0 {
		return nil, false
	}
	a := s.agents[i]
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.AgentType != nil {
		a.AgentType = *in.AgentType
	}
	if in.Model != nil {
		a.Model = *in.Model
	}
	if in.Temperature != nil {
		a.Temperature = *in.Temperature
	}
	if in.MaxTokens != nil {
		a.MaxTokens = *in.MaxTokens
	}
	if in.SystemPrompt != nil {
		a.SystemPrompt = *in.SystemPrompt
	}
	if in.Tags != nil {
		a.Tags = in.Tags
	}
	if in.AvatarURL != nil {
		a.AvatarURL = *in.AvatarURL
	}
	if in.ToolsConfig != nil {
		a.ToolsConfig = in.ToolsConfig
	}
	a.UpdatedAt = time.Now().UTC()
	out := *a
	return &out, true
}

func (s *store) SetAgentStatus(id string, status client.AgentStatus) (*client.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findAgent(id)
	if i < 0 {
		return nil, false
	}
	a := s.agents[i]
	a.Status = status
	now := time.Now().UTC()
	a.UpdatedAt = now
	if status == client.AgentActive {
		a.LastActive = &now
	}
	out := *a
	return &out, true
}

// DeleteAgent removes the agent and its tasks. Activities stay; they
// are history.
func (s *store) DeleteAgent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findAgent(id)
	if i < 0 {
		return false
	}
	s.agents = append(s.agents[:i], s.agents[i+1:]...)
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.AgentID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	return true
}

func taskMatches(t *client.Task, f client.TaskFilter) bool {
	if f.AgentID != "" && t.AgentID != f.AgentID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func (s *store) ListTasks(f client.TaskFilter) *client.TaskList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []client.Task
	for _, t := range s.tasks {
		if taskMatches(t, f) {
			matched = append(matched, *t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end, pages := paginate(len(matched), f.Page, f.PageSize)
	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = 20
	}
	return &client.TaskList{
		Tasks:      matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}
}

func (s *store) GetTask(id string) (*client.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.findTask(id)
	if i < 0 {
		return nil, false
	}
	t := *s.tasks[i]
	return &t, true
}

// CreateTask stores a pending task. The second return is false when the
// agent does not exist.
func (s *store) CreateTask(in client.TaskCreate) (*client.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findAgent(in.AgentID) < 0 {
		return nil, false
	}
	now := time.Now().UTC()
	t := &client.Task{
		ID:          uuid.NewString(),
		AgentID:     in.AgentID,
		Title:       in.Title,
		Description: in.Description,
		Status:      client.TaskPending,
		Priority:    in.Priority,
		InputData:   in.InputData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = client.PriorityMedium
	}
	s.tasks = append(s.tasks, t)
	out := *t
	return &out, true
}

func (s *store) UpdateTask(id string, in client.TaskUpdate) (*client.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTask(id)
	if i < 0 {
		return nil, false
	}
	t := s.tasks[i]
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	t.UpdatedAt = time.Now().UTC()
	out := *t
	return &out, true
}

// CancelTask moves a pending or running task to cancelled. The string
// return is a rejection reason; empty means the transition happened.
func (s *store) CancelTask(id string) (*client.Task, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTask(id)
	if i < 0 {
		return nil, ""
	}
	t := s.tasks[i]
	if t.Status != client.TaskPending && t.Status != client.TaskRunning {
		return nil, "only pending or running tasks can be cancelled"
	}
	now := time.Now().UTC()
	t.Status = client.TaskCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
	out := *t
	return &out, ""
}

// RetryTask requeues a failed or cancelled task as pending.
func (s *store) RetryTask(id string) (*client.Task, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTask(id)
	if i < 0 {
		return nil, ""
	}
	t := s.tasks[i]
	if t.Status != client.TaskFailed && t.Status != client.TaskCancelled {
		return nil, "only failed or cancelled tasks can be retried"
	}
	t.Status = client.TaskPending
	t.RetryCount++
	t.ErrorMessage = ""
	t.StartedAt = nil
	t.CompletedAt = nil
	t.ExecutionTimeSeconds = nil
	t.UpdatedAt = time.Now().UTC()
	out := *t
	return &out, ""
}

// StartTask is used by the generator to move a pending task to running.
func (s *store) StartTask(id string) (*client.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTask(id)
	if i < 0 || s.tasks[i].Status != client.TaskPending {
		return nil, false
	}
	t := s.tasks[i]
	now := time.Now().UTC()
	t.Status = client.TaskRunning
	t.StartedAt = &now
	t.UpdatedAt = now
	out := *t
	return &out, true
}

// FinishTask completes or fails a running task and rolls the outcome
// into the owning agent's counters.
func (s *store) FinishTask(id string, failed bool, errMsg string) (*client.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findTask(id)
	if i < 0 || s.tasks[i].Status != client.TaskRunning {
		return nil, false
	}
	t := s.tasks[i]
	now := time.Now().UTC()
	if failed {
		t.Status = client.TaskFailed
		t.ErrorMessage = errMsg
	} else {
		t.Status = client.TaskCompleted
	}
	t.CompletedAt = &now
	t.UpdatedAt = now
	if t.StartedAt != nil {
		secs := int(now.Sub(*t.StartedAt).Seconds())
		if secs < 1 {
			secs = 1
		}
		t.ExecutionTimeSeconds = &secs
	}

	if j := s.findAgent(t.AgentID); j >= 0 {
		a := s.agents[j]
		if failed {
			a.TasksFailed++
		} else {
			a.TasksCompleted++
		}
		total := a.TasksCompleted + a.TasksFailed
		if total > 0 {
			a.SuccessRate = float64(a.TasksCompleted) / float64(total) * 100
		}
		a.LastActive = &now
		a.UpdatedAt = now
	}
	out := *t
	return &out, true
}

// NextPendingTask returns the oldest pending task for the agent.
func (s *store) NextPendingTask(agentID string) (*client.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *client.Task
	for _, t := range s.tasks {
		if t.AgentID != agentID || t.Status != client.TaskPending {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, false
	}
	out := *oldest
	return &out, true
}

// RunningTask returns the agent's current running task, if any.
func (s *store) RunningTask(agentID string) (*client.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.AgentID == agentID && t.Status == client.TaskRunning {
			out := *t
			return &out, true
		}
	}
	return nil, false
}

func activityMatches(a *client.Activity, f client.ActivityFilter) bool {
	if f.AgentID != "" && a.AgentID != f.AgentID {
		return false
	}
	if f.ActivityType != "" && a.ActivityType != f.ActivityType {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func (s *store) ListActivities(f client.ActivityFilter) *client.ActivityList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []client.Activity
	for _, a := range s.activities {
		if activityMatches(a, f) {
			matched = append(matched, *a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end, pages := paginate(len(matched), f.Page, f.PageSize)
	page := f.Page
	if page <= 0 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = 20
	}
	return &client.ActivityList{
		Activities: matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}
}

// AddActivity assigns an ID and timestamp, stores the entry and returns
// it. The log is trimmed from the front past activityCap.
func (s *store) AddActivity(a client.Activity) *client.Activity {
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.activities = append(s.activities, &a)
	if len(s.activities) > activityCap {
		s.activities = s.activities[len(s.activities)-activityCap:]
	}
	s.mu.Unlock()
	out := a
	return &out
}

func (s *store) Dashboard() client.DashboardMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := client.DashboardMetrics{TotalAgents: len(s.agents)}
	var rateSum float64
	var rated int
	for _, a := range s.agents {
		if a.Status == client.AgentActive {
			m.ActiveAgents++
		}
		if a.TasksCompleted+a.TasksFailed > 0 {
			rateSum += a.SuccessRate
			rated++
		}
	}
	for _, t := range s.tasks {
		if t.Status == client.TaskCompleted {
			m.TasksCompleted++
		}
	}
	if rated > 0 {
		m.AvgSuccessRate = rateSum / float64(rated)
	}
	m.Trends = client.MetricTrends{
		AgentsChange:      "+2.0%",
		TasksChange:       "+8.3%",
		SuccessRateChange: "-0.7%",
	}
	return m
}

func (s *store) AgentMetrics(id string) (*client.AgentMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.findAgent(id)
	if i < 0 {
		return nil, false
	}
	a := s.agents[i]
	m := &client.AgentMetrics{
		AgentID:        a.ID,
		AgentName:      a.Name,
		TasksCompleted: a.TasksCompleted,
		TasksFailed:    a.TasksFailed,
		SuccessRate:    a.SuccessRate,
		Uptime:         a.Uptime,
		LastActive:     a.LastActive,
		Status:         a.Status,
	}
	for _, t := range s.tasks {
		if t.AgentID != a.ID {
			continue
		}
		switch t.Status {
		case client.TaskPending:
			m.PendingTasks++
		case client.TaskRunning:
			m.RunningTasks++
		}
	}
	return m, true
}

// Counts reports store sizes for the memory metrics endpoint.
func (s *store) Counts() (agents, tasks, activities int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents), len(s.tasks), len(s.activities)
}

func (s *store) ListKeys() []client.APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]client.APIKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceName < out[j].ServiceName })
	return out
}

// UpsertKey creates or replaces the record for a service. Secrets are
// folded into presence booleans; they are never stored readable here.
func (s *store) UpsertKey(in client.APIKeyUpsert) *client.APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	i := s.findKey(in.ServiceName)
	var k *client.APIKey
	if i >= 0 {
		k = s.keys[i]
	} else {
		k = &client.APIKey{ID: uuid.NewString(), ServiceName: in.ServiceName, CreatedAt: now}
		s.keys = append(s.keys, k)
	}
	k.IsActive = in.IsActive
	k.HasAPIKey = in.APIKey != ""
	k.HasAccessToken = in.AccessToken != "" || in.RefreshToken != ""
	k.HasClientCredentials = in.ClientID != "" || in.ClientSecret != ""
	k.UpdatedAt = now
	out := *k
	return &out
}

func (s *store) DeleteKey(service string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findKey(service)
	if i < 0 {
		return false
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	return true
}

// TestKey validates stored credentials for a service. The bool is false
// when no record exists.
func (s *store) TestKey(service string) (*client.ConnectionTest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findKey(service)
	if i < 0 {
		return nil, false
	}
	k := s.keys[i]
	res := &client.ConnectionTest{ServiceName: service}
	switch {
	case !k.IsActive:
		res.Message = "integration is disabled"
	case !k.HasAPIKey && !k.HasAccessToken && !k.HasClientCredentials:
		res.Message = "no credentials configured"
	default:
		res.Success = true
		res.Message = "credentials accepted"
		now := time.Now().UTC()
		k.LastValidated = &now
		k.UpdatedAt = now
	}
	return res, true
}
