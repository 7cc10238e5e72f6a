// Package client provides HTTP and WebSocket clients for the Personal-Q backend.
// Types mirror the backend wire protocol without importing server code.
package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AgentType classifies what an agent is built to do.
type AgentType string

const (
	AgentConversational AgentType = "conversational"
	AgentAnalytical     AgentType = "analytical"
	AgentCreative       AgentType = "creative"
	AgentAutomation     AgentType = "automation"
)

// AgentStatus is an agent's lifecycle state.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentTraining AgentStatus = "training"
	AgentError    AgentStatus = "error"
	AgentPaused   AgentStatus = "paused"
)

// Agent mirrors the backend agent response schema.
type Agent struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	AgentType      AgentType      `json:"agent_type"`
	Status         AgentStatus    `json:"status"`
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	SystemPrompt   string         `json:"system_prompt"`
	Tags           []string       `json:"tags"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	ToolsConfig    map[string]any `json:"tools_config,omitempty"`
	TasksCompleted int            `json:"tasks_completed"`
	TasksFailed    int            `json:"tasks_failed"`
	LastActive     *time.Time     `json:"last_active,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	SuccessRate    float64        `json:"success_rate"`
	Uptime         float64        `json:"uptime"`
}

// AgentCreate is the body for POST /agents.
type AgentCreate struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	AgentType    AgentType      `json:"agent_type"`
	Model        string         `json:"model"`
	Temperature  float64        `json:"temperature"`
	MaxTokens    int            `json:"max_tokens"`
	SystemPrompt string         `json:"system_prompt"`
	Tags         []string       `json:"tags,omitempty"`
	AvatarURL    string         `json:"avatar_url,omitempty"`
	ToolsConfig  map[string]any `json:"tools_config,omitempty"`
}

// AgentUpdate is the body for PUT /agents/{id}. Nil fields are left unchanged.
type AgentUpdate struct {
	Name         *string        `json:"name,omitempty"`
	Description  *string        `json:"description,omitempty"`
	AgentType    *AgentType     `json:"agent_type,omitempty"`
	Model        *string        `json:"model,omitempty"`
	Temperature  *float64       `json:"temperature,omitempty"`
	MaxTokens    *int           `json:"max_tokens,omitempty"`
	SystemPrompt *string        `json:"system_prompt,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	AvatarURL    *string        `json:"avatar_url,omitempty"`
	ToolsConfig  map[string]any `json:"tools_config,omitempty"`
}

// AgentList is the paginated envelope for GET /agents.
type AgentList struct {
	Agents     []Agent `json:"agents"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// TaskPriority orders tasks within an agent's queue.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Task mirrors the backend task response schema.
type Task struct {
	ID                   string         `json:"id"`
	AgentID              string         `json:"agent_id"`
	Title                string         `json:"title"`
	Description          string         `json:"description,omitempty"`
	Status               TaskStatus     `json:"status"`
	Priority             TaskPriority   `json:"priority"`
	InputData            map[string]any `json:"input_data,omitempty"`
	OutputData           map[string]any `json:"output_data,omitempty"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	CeleryTaskID         string         `json:"celery_task_id,omitempty"`
	ExecutionTimeSeconds *int           `json:"execution_time_seconds,omitempty"`
	RetryCount           int            `json:"retry_count"`
	CreatedAt            time.Time      `json:"created_at"`
	StartedAt            *time.Time     `json:"started_at,omitempty"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// TaskCreate is the body for POST /tasks.
type TaskCreate struct {
	AgentID     string         `json:"agent_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    TaskPriority   `json:"priority,omitempty"`
	InputData   map[string]any `json:"input_data,omitempty"`
}

// TaskUpdate is the body for PATCH /tasks/{id}. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
}

// TaskList is the paginated envelope for GET /tasks.
type TaskList struct {
	Tasks      []Task `json:"tasks"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// ActivityType classifies a feed entry.
type ActivityType string

const (
	ActivityAgentCreated         ActivityType = "agent_created"
	ActivityAgentUpdated         ActivityType = "agent_updated"
	ActivityAgentDeleted         ActivityType = "agent_deleted"
	ActivityAgentStarted         ActivityType = "agent_started"
	ActivityAgentStopped         ActivityType = "agent_stopped"
	ActivityTaskCreated          ActivityType = "task_created"
	ActivityTaskStarted          ActivityType = "task_started"
	ActivityTaskCompleted        ActivityType = "task_completed"
	ActivityTaskFailed           ActivityType = "task_failed"
	ActivityTaskCancelled        ActivityType = "task_cancelled"
	ActivityIntegrationConnected ActivityType = "integration_connected"
	ActivityIntegrationError     ActivityType = "integration_error"
)

// ActivityStatus colours a feed entry.
type ActivityStatus string

const (
	ActivitySuccess ActivityStatus = "success"
	ActivityError   ActivityStatus = "error"
	ActivityInfo    ActivityStatus = "info"
	ActivityWarning ActivityStatus = "warning"
)

// Activity mirrors the backend activity response schema.
type Activity struct {
	ID           string         `json:"id"`
	AgentID      string         `json:"agent_id,omitempty"`
	TaskID       string         `json:"task_id,omitempty"`
	ActivityType ActivityType   `json:"activity_type"`
	Status       ActivityStatus `json:"status"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Metadata     map[string]any `json:"activity_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ActivityList is the paginated envelope for GET /activities.
type ActivityList struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// APIKey is the masked key record returned by the settings endpoints.
// Secrets never travel back to the client, only presence booleans.
type APIKey struct {
	ID                   string     `json:"id"`
	ServiceName          string     `json:"service_name"`
	IsActive             bool       `json:"is_active"`
	HasAPIKey            bool       `json:"has_api_key"`
	HasAccessToken       bool       `json:"has_access_token"`
	HasClientCredentials bool       `json:"has_client_credentials"`
	LastValidated        *time.Time `json:"last_validated,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// APIKeyUpsert is the body for POST /settings/api-keys. The backend
// creates or replaces the record for the named service.
type APIKeyUpsert struct {
	ServiceName  string `json:"service_name"`
	APIKey       string `json:"api_key,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TenantID     string `json:"tenant_id,omitempty"`
	Config       string `json:"config,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// ConnectionTest is the result of POST /settings/test-connection.
type ConnectionTest struct {
	ServiceName string `json:"service_name"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
}

// MetricTrends carries the human-readable deltas shown on dashboard cards.
type MetricTrends struct {
	AgentsChange      string `json:"agents_change"`
	TasksChange       string `json:"tasks_change"`
	SuccessRateChange string `json:"success_rate_change"`
}

// DashboardMetrics is returned by GET /metrics/dashboard.
type DashboardMetrics struct {
	TotalAgents    int          `json:"total_agents"`
	ActiveAgents   int          `json:"active_agents"`
	TasksCompleted int          `json:"tasks_completed"`
	AvgSuccessRate float64      `json:"avg_success_rate"`
	Trends         MetricTrends `json:"trends"`
}

// AgentMetrics is returned by GET /metrics/agent/{id}.
type AgentMetrics struct {
	AgentID        string      `json:"agent_id"`
	AgentName      string      `json:"agent_name"`
	TasksCompleted int         `json:"tasks_completed"`
	TasksFailed    int         `json:"tasks_failed"`
	SuccessRate    float64     `json:"success_rate"`
	Uptime         float64     `json:"uptime"`
	LastActive     *time.Time  `json:"last_active,omitempty"`
	PendingTasks   int         `json:"pending_tasks"`
	RunningTasks   int         `json:"running_tasks"`
	Status         AgentStatus `json:"status"`
}

// MemoryMetrics is returned by GET /metrics/memory.
type MemoryMetrics struct {
	MemoryStatistics map[string]any `json:"memory_statistics"`
	StorageType      string         `json:"storage_type"`
}

// UserInfo is returned by GET /auth/me for an authenticated session.
type UserInfo struct {
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

// AgentFilter narrows GET /agents. Zero values are omitted from the query.
type AgentFilter struct {
	Page      int
	PageSize  int
	Status    AgentStatus
	AgentType AgentType
	Search    string
	Tags      []string
}

// Query encodes the filter as request parameters. The encoding is
// canonical (sorted keys), so it doubles as a cache key component.
func (f AgentFilter) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.AgentType != "" {
		q.Set("agent_type", string(f.AgentType))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	return q
}

// TaskFilter narrows GET /tasks.
type TaskFilter struct {
	Page     int
	PageSize int
	AgentID  string
	Status   TaskStatus
}

func (f TaskFilter) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.AgentID != "" {
		q.Set("agent_id", f.AgentID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// ActivityFilter narrows GET /activities.
type ActivityFilter struct {
	Page         int
	PageSize     int
	AgentID      string
	ActivityType ActivityType
	Status       ActivityStatus
}

func (f ActivityFilter) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.AgentID != "" {
		q.Set("agent_id", f.AgentID)
	}
	if f.ActivityType != "" {
		q.Set("activity_type", string(f.ActivityType))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// apiDetail is the error body the backend attaches to non-2xx responses.
type apiDetail struct {
	Detail string `json:"detail"`
}
