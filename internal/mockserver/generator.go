package mockserver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

const warmupTicks = 40

var failReasons = []string{
	"model overloaded, gave up after 3 attempts",
	"tool call timed out after 120s",
	"rate limited by upstream api",
	"context window exceeded",
}

var taskPriorities = []client.TaskPriority{
	client.PriorityLow, client.PriorityMedium, client.PriorityMedium, client.PriorityHigh,
}

// behavior drives one seeded agent's demo traffic.
type behavior struct {
	agentID  string
	pattern  string  // steady, burst, flaky, warmup
	minRun   int     // ticks a task keeps running before it may finish
	failBias float64 // chance a finishing task fails
	backlog  []string
	nextIdx  int
	seq      int
	runTicks int
}

type generator struct {
	store     *store
	hub       *hub
	interval  time.Duration
	rng       *rand.Rand
	behaviors []*behavior
}

func newGenerator(st *store, h *hub) *generator {
	return &generator{
		store:    st,
		hub:      h,
		interval: 1500 * time.Millisecond,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start binds behaviors to the seeded agents and begins ticking. Agents
// the user deletes simply stop producing traffic.
func (g *generator) Start(ctx context.Context) {
	specs := []struct {
		name     string
		pattern  string
		minRun   int
		failBias float64
		backlog  []string
	}{
		{"Research Assistant", "steady", 3, 0.05, []string{
			"Scan arxiv digest", "Summarise benchmark thread", "Fact-check draft post",
		}},
		{"Pipeline Scheduler", "steady", 5, 0.08, []string{
			"Hourly warehouse sync", "Refresh materialised views", "Vacuum staging tables",
		}},
		{"Code Reviewer", "burst", 2, 0.1, []string{
			"Review incoming PR", "Re-check flaky suite", "Audit dependency bump",
		}},
		{"Support Concierge", "flaky", 2, 0.35, []string{
			"Triage new ticket", "Draft reply for escalation", "Close stale tickets",
		}},
		{"Data Analyst", "warmup", 4, 0.15, []string{
			"Build retention report", "Refresh funnel dashboard",
		}},
	}
	for _, sp := range specs {
		a, ok := g.store.AgentByName(sp.name)
		if !ok {
			continue
		}
		g.behaviors = append(g.behaviors, &behavior{
			agentID:  a.ID,
			pattern:  sp.pattern,
			minRun:   sp.minRun,
			failBias: sp.failBias,
			backlog:  sp.backlog,
			seq:      10 + g.rng.Intn(50),
		})
	}
	go g.run(ctx)
}

func (g *generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			for _, b := range g.behaviors {
				g.advance(b, tick)
			}
		}
	}
}

func (g *generator) advance(b *behavior, tick int) {
	a, ok := g.store.GetAgent(b.agentID)
	if !ok {
		return
	}

	if b.pattern == "warmup" {
		if tick < warmupTicks {
			return
		}
		if a.Status == client.AgentTraining {
			if up, ok := g.store.SetAgentStatus(b.agentID, client.AgentActive); ok {
				g.hub.Broadcast(client.EventAgentStatusChanged, up)
				g.logActivity(client.Activity{
					AgentID:      up.ID,
					ActivityType: client.ActivityAgentStarted,
					Status:       client.ActivitySuccess,
					Title:        up.Name + " finished training",
				})
			}
		}
		b.pattern = "steady"
		return
	}

	if a.Status == client.AgentError {
		if g.rng.Float64() < 0.08 {
			if up, ok := g.store.SetAgentStatus(b.agentID, client.AgentActive); ok {
				g.hub.Broadcast(client.EventAgentStatusChanged, up)
				g.logActivity(client.Activity{
					AgentID:      up.ID,
					ActivityType: client.ActivityAgentStarted,
					Status:       client.ActivitySuccess,
					Title:        up.Name + " recovered",
				})
			}
		}
		return
	}
	// Pausing an agent in the dashboard stops its traffic.
	if a.Status != client.AgentActive {
		return
	}

	if running, ok := g.store.RunningTask(b.agentID); ok {
		b.runTicks++
		if b.runTicks < b.minRun || g.rng.Float64() < 0.5 {
			return
		}
		b.runTicks = 0
		g.finishTask(b, running)
		return
	}

	if pending, ok := g.store.NextPendingTask(b.agentID); ok {
		if g.rng.Float64() < g.startChance(b, tick) {
			g.startTask(pending)
		}
		return
	}

	if g.rng.Float64() < g.queueChance(b, tick) {
		g.queueTask(b)
	}
}

func (g *generator) startChance(b *behavior, tick int) float64 {
	if b.pattern == "burst" {
		if tick%16 < 5 {
			return 0.9
		}
		return 0.05
	}
	return 0.6
}

func (g *generator) queueChance(b *behavior, tick int) float64 {
	switch b.pattern {
	case "burst":
		if tick%16 < 5 {
			return 0.5
		}
		return 0.05
	case "flaky":
		return 0.2
	default:
		return 0.25
	}
}

func (g *generator) startTask(t *client.Task) {
	started, ok := g.store.StartTask(t.ID)
	if !ok {
		return
	}
	g.hub.Broadcast(client.EventTaskStarted, taskEvent(started))
	g.logActivity(client.Activity{
		AgentID:      started.AgentID,
		TaskID:       started.ID,
		ActivityType: client.ActivityTaskStarted,
		Status:       client.ActivityInfo,
		Title:        "Started: " + started.Title,
	})
}

func (g *generator) finishTask(b *behavior, t *client.Task) {
	failed := g.rng.Float64() < b.failBias
	errMsg := ""
	if failed {
		errMsg = failReasons[g.rng.Intn(len(failReasons))]
	}
	done, ok := g.store.FinishTask(t.ID, failed, errMsg)
	if !ok {
		return
	}
	if failed {
		g.hub.Broadcast(client.EventTaskFailed, taskEvent(done))
		g.logActivity(client.Activity{
			AgentID:      done.AgentID,
			TaskID:       done.ID,
			ActivityType: client.ActivityTaskFailed,
			Status:       client.ActivityError,
			Title:        "Failed: " + done.Title,
			Description:  errMsg,
		})
		// A flaky agent sometimes drops into error state with its task.
		if b.pattern == "flaky" && g.rng.Float64() < 0.3 {
			if up, ok := g.store.SetAgentStatus(b.agentID, client.AgentError); ok {
				g.hub.Broadcast(client.EventAgentStatusChanged, up)
				g.logActivity(client.Activity{
					AgentID:      up.ID,
					ActivityType: client.ActivityAgentStopped,
					Status:       client.ActivityError,
					Title:        up.Name + " entered error state",
				})
			}
		}
		return
	}
	g.hub.Broadcast(client.EventTaskCompleted, taskEvent(done))
	g.logActivity(client.Activity{
		AgentID:      done.AgentID,
		TaskID:       done.ID,
		ActivityType: client.ActivityTaskCompleted,
		Status:       client.ActivitySuccess,
		Title:        "Completed: " + done.Title,
	})
}

func (g *generator) queueTask(b *behavior) {
	title := fmt.Sprintf("%s #%d", b.backlog[b.nextIdx%len(b.backlog)], b.seq)
	b.nextIdx++
	b.seq++
	t, ok := g.store.CreateTask(client.TaskCreate{
		AgentID:  b.agentID,
		Title:    title,
		Priority: taskPriorities[g.rng.Intn(len(taskPriorities))],
	})
	if !ok {
		return
	}
	g.logActivity(client.Activity{
		AgentID:      t.AgentID,
		TaskID:       t.ID,
		ActivityType: client.ActivityTaskCreated,
		Status:       client.ActivityInfo,
		Title:        "Queued: " + t.Title,
	})
}

func (g *generator) logActivity(a client.Activity) {
	stored := g.store.AddActivity(a)
	g.hub.Broadcast(client.EventActivityCreated, stored)
}
