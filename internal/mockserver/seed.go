package mockserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

// Seed loads the demo dataset: a spread of agents across every status
// and type, task history in all five states and an activity trail to
// scroll through. IDs are fresh per process.
func (s *store) Seed(now time.Time) {
	now = now.UTC()
	ago := func(d time.Duration) time.Time { return now.Add(-d) }

	agents := []*client.Agent{
		{
			Name:        "Research Assistant",
			Description: "Summarises papers and answers questions with citations",
			AgentType:   client.AgentConversational, Status: client.AgentActive,
			Model: "claude-sonnet-4-5", Temperature: 0.7, MaxTokens: 8192,
			SystemPrompt: "You are a meticulous research assistant. Cite every claim and say so when a source is missing.",
			Tags:         []string{"research", "web"},
			TasksCompleted: 214, TasksFailed: 6, SuccessRate: 97.3, Uptime: 99.2,
			LastActive: timePtr(ago(2 * time.Minute)), CreatedAt: ago(45 * 24 * time.Hour),
		},
		{
			Name:        "Code Reviewer",
			Description: "Reviews pull requests for correctness and style drift",
			AgentType:   client.AgentAnalytical, Status: client.AgentActive,
			Model: "claude-opus-4-1", Temperature: 0.2, MaxTokens: 16384,
			SystemPrompt: "Review the diff. Flag bugs first, style second. Be terse.",
			Tags:         []string{"code", "review", "github"},
			TasksCompleted: 182, TasksFailed: 11, SuccessRate: 94.3, Uptime: 98.1,
			LastActive: timePtr(ago(7 * time.Minute)), CreatedAt: ago(38 * 24 * time.Hour),
		},
		{
			Name:        "Pipeline Scheduler",
			Description: "Kicks off nightly data pipelines and retries stragglers",
			AgentType:   client.AgentAutomation, Status: client.AgentActive,
			Model: "claude-haiku-4-5", Temperature: 0.0, MaxTokens: 4096,
			SystemPrompt: "Run the scheduled jobs in dependency order. Never skip a failed upstream.",
			Tags:         []string{"etl", "cron"},
			TasksCompleted: 516, TasksFailed: 24, SuccessRate: 95.6, Uptime: 99.8,
			LastActive: timePtr(ago(40 * time.Second)), CreatedAt: ago(90 * 24 * time.Hour),
		},
		{
			Name:        "Support Concierge",
			Description: "First responder for inbound support tickets",
			AgentType:   client.AgentConversational, Status: client.AgentActive,
			Model: "gpt-4o-mini", Temperature: 0.5, MaxTokens: 4096,
			SystemPrompt: "Answer warmly, escalate anything involving billing or data loss.",
			Tags:         []string{"support"},
			TasksCompleted: 98, TasksFailed: 17, SuccessRate: 85.2, Uptime: 96.4,
			LastActive: timePtr(ago(90 * time.Second)), CreatedAt: ago(21 * 24 * time.Hour),
		},
		{
			Name:        "Content Writer",
			Description: "Drafts release notes and changelog entries",
			AgentType:   client.AgentCreative, Status: client.AgentPaused,
			Model: "claude-sonnet-4-5", Temperature: 1.1, MaxTokens: 8192,
			SystemPrompt: "Write in the product voice: plain, concrete, no exclamation marks.",
			Tags:         []string{"writing"},
			TasksCompleted: 64, TasksFailed: 3, SuccessRate: 95.5, Uptime: 91.0,
			LastActive: timePtr(ago(26 * time.Hour)), CreatedAt: ago(30 * 24 * time.Hour),
		},
		{
			Name:        "Data Analyst",
			Description: "Builds ad-hoc reports from the warehouse",
			AgentType:   client.AgentAnalytical, Status: client.AgentTraining,
			Model: "gemini-2.0-flash", Temperature: 0.3, MaxTokens: 8192,
			SystemPrompt: "Prefer SQL over pandas. Always show the query used.",
			Tags:         []string{"sql", "reports"},
			TasksCompleted: 12, TasksFailed: 5, SuccessRate: 70.6, Uptime: 88.9,
			LastActive: timePtr(ago(3 * time.Hour)), CreatedAt: ago(6 * 24 * time.Hour),
		},
		{
			Name:        "Inbox Triage",
			Description: "Labels and routes the shared inbox",
			AgentType:   client.AgentAutomation, Status: client.AgentInactive,
			Model: "claude-haiku-4-5", Temperature: 0.1, MaxTokens: 2048,
			SystemPrompt: "Label, route, never reply.",
			Tags:         []string{"email"},
			TasksCompleted: 341, TasksFailed: 9, SuccessRate: 97.4, Uptime: 0,
			LastActive: timePtr(ago(4 * 24 * time.Hour)), CreatedAt: ago(70 * 24 * time.Hour),
		},
		{
			Name:        "Release Notes Bot",
			Description: "Turns merged PRs into release notes",
			AgentType:   client.AgentCreative, Status: client.AgentError,
			Model: "claude-sonnet-4-5", Temperature: 0.8, MaxTokens: 4096,
			SystemPrompt: "Group by area, newest first. Link every PR.",
			Tags:         []string{"writing", "github"},
			TasksCompleted: 27, TasksFailed: 8, SuccessRate: 77.1, Uptime: 64.3,
			LastActive: timePtr(ago(50 * time.Minute)), CreatedAt: ago(14 * 24 * time.Hour),
		},
	}
	for _, a := range agents {
		a.ID = uuid.NewString()
		a.UpdatedAt = a.CreatedAt
		if a.LastActive != nil && a.LastActive.After(a.UpdatedAt) {
			a.UpdatedAt = *a.LastActive
		}
	}

	id := func(i int) string { return agents[i].ID }

	type seedTask struct {
		agent    int
		title    string
		desc     string
		status   client.TaskStatus
		priority client.TaskPriority
		age      time.Duration
		runSecs  int
		errMsg   string
		retries  int
	}
	seedTasks := []seedTask{
		{agent: 0, title: "Summarise attention-routing survey", desc: "Three paragraph summary plus open questions", status: client.TaskCompleted, priority: client.PriorityMedium, age: 3 * time.Hour, runSecs: 132},
		{agent: 0, title: "Compare vector DB benchmarks", status: client.TaskRunning, priority: client.PriorityHigh, age: 4 * time.Minute},
		{agent: 0, title: "Collect citations for Q3 report", status: client.TaskPending, priority: client.PriorityLow, age: 2 * time.Minute},
		{agent: 1, title: "Review PR #842: retry backoff in fetcher", status: client.TaskCompleted, priority: client.PriorityHigh, age: 5 * time.Hour, runSecs: 318},
		{agent: 1, title: "Review PR #847: flaky websocket test", status: client.TaskFailed, priority: client.PriorityMedium, age: 2 * time.Hour, errMsg: "diff exceeds context window, needs chunked review", retries: 1},
		{agent: 1, title: "Review PR #851: cache invalidation on delete", status: client.TaskPending, priority: client.PriorityUrgent, age: 10 * time.Minute},
		{agent: 2, title: "Nightly warehouse sync", desc: "dim_users, dim_orders, fact_events", status: client.TaskCompleted, priority: client.PriorityUrgent, age: 9 * time.Hour, runSecs: 1460},
		{agent: 2, title: "Backfill events for 2026-08-20", status: client.TaskRunning, priority: client.PriorityHigh, age: 11 * time.Minute},
		{agent: 2, title: "Rotate staging credentials", status: client.TaskCancelled, priority: client.PriorityLow, age: 26 * time.Hour},
		{agent: 3, title: "Ticket #5521: export stuck at 99%", status: client.TaskCompleted, priority: client.PriorityHigh, age: 80 * time.Minute, runSecs: 95},
		{agent: 3, title: "Ticket #5530: SSO loop on Safari", status: client.TaskPending, priority: client.PriorityMedium, age: 6 * time.Minute},
		{agent: 4, title: "Draft 2.14 release notes", status: client.TaskCompleted, priority: client.PriorityMedium, age: 30 * time.Hour, runSecs: 204},
		{agent: 5, title: "Weekly activation cohort report", status: client.TaskFailed, priority: client.PriorityMedium, age: 4 * time.Hour, errMsg: "warehouse timeout after 300s", retries: 2},
		{agent: 7, title: "Notes for hotfix 2.14.1", status: client.TaskFailed, priority: client.PriorityHigh, age: 55 * time.Minute, errMsg: "github token rejected (401)"},
	}
	for _, st := range seedTasks {
		created := ago(st.age)
		t := &client.Task{
			ID:          uuid.NewString(),
			AgentID:     id(st.agent),
			Title:       st.title,
			Description: st.desc,
			Status:      st.status,
			Priority:    st.priority,
			RetryCount:  st.retries,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		switch st.status {
		case client.TaskRunning:
			t.StartedAt = timePtr(created.Add(30 * time.Second))
			t.UpdatedAt = *t.StartedAt
		case client.TaskCompleted, client.TaskFailed:
			t.StartedAt = timePtr(created.Add(30 * time.Second))
			secs := st.runSecs
			if secs == 0 {
				secs = 60
			}
			t.ExecutionTimeSeconds = intPtr(secs)
			t.CompletedAt = timePtr(t.StartedAt.Add(time.Duration(secs) * time.Second))
			t.UpdatedAt = *t.CompletedAt
			t.ErrorMessage = st.errMsg
		case client.TaskCancelled:
			t.CompletedAt = timePtr(created.Add(5 * time.Minute))
			t.UpdatedAt = *t.CompletedAt
		}
		s.tasks = append(s.tasks, t)
	}

	type seedActivity struct {
		agent  int
		typ    client.ActivityType
		status client.ActivityStatus
		title  string
		age    time.Duration
	}
	seedActs := []seedActivity{
		{agent: 2, typ: client.ActivityTaskCompleted, status: client.ActivitySuccess, title: "Nightly warehouse sync finished", age: 8 * time.Hour},
		{agent: 1, typ: client.ActivityTaskFailed, status: client.ActivityError, title: "Review PR #847 failed: context window", age: 2 * time.Hour},
		{agent: 5, typ: client.ActivityAgentCreated, status: client.ActivityInfo, title: "Data Analyst created", age: 6 * 24 * time.Hour},
		{agent: 5, typ: client.ActivityTaskFailed, status: client.ActivityError, title: "Cohort report failed: warehouse timeout", age: 4 * time.Hour},
		{agent: 7, typ: client.ActivityIntegrationError, status: client.ActivityError, title: "GitHub token rejected", age: 55 * time.Minute},
		{agent: 7, typ: client.ActivityAgentStopped, status: client.ActivityWarning, title: "Release Notes Bot entered error state", age: 50 * time.Minute},
		{agent: 0, typ: client.ActivityTaskStarted, status: client.ActivityInfo, title: "Comparing vector DB benchmarks", age: 4 * time.Minute},
		{agent: 3, typ: client.ActivityTaskCompleted, status: client.ActivitySuccess, title: "Ticket #5521 resolved", age: 75 * time.Minute},
		{agent: 4, typ: client.ActivityAgentStopped, status: client.ActivityInfo, title: "Content Writer paused", age: 26 * time.Hour},
		{agent: 2, typ: client.ActivityTaskStarted, status: client.ActivityInfo, title: "Backfilling events for 2026-08-20", age: 11 * time.Minute},
		{agent: 6, typ: client.ActivityAgentStopped, status: client.ActivityInfo, title: "Inbox Triage deactivated", age: 4 * 24 * time.Hour},
		{agent: 1, typ: client.ActivityTaskCompleted, status: client.ActivitySuccess, title: "Review PR #842 approved", age: 5 * time.Hour},
	}
	for _, sa := range seedActs {
		s.activities = append(s.activities, &client.Activity{
			ID:           uuid.NewString(),
			AgentID:      id(sa.agent),
			ActivityType: sa.typ,
			Status:       sa.status,
			Title:        sa.title,
			CreatedAt:    ago(sa.age),
		})
	}

	s.keys = []*client.APIKey{
		{
			ID: uuid.NewString(), ServiceName: "anthropic", IsActive: true,
			HasAPIKey:     true,
			LastValidated: timePtr(ago(2 * time.Hour)),
			CreatedAt:     ago(90 * 24 * time.Hour), UpdatedAt: ago(2 * time.Hour),
		},
		{
			ID: uuid.NewString(), ServiceName: "github", IsActive: true,
			HasAccessToken: true,
			CreatedAt:      ago(30 * 24 * time.Hour), UpdatedAt: ago(30 * 24 * time.Hour),
		},
		{
			ID: uuid.NewString(), ServiceName: "notion", IsActive: false,
			HasAPIKey: true,
			CreatedAt: ago(120 * 24 * time.Hour), UpdatedAt: ago(15 * 24 * time.Hour),
		},
	}

	s.agents = agents
}
