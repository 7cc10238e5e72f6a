package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType identifies a server push on the event feed.
type EventType string

const (
	EventAgentCreated       EventType = "agent_created"
	EventAgentUpdated       EventType = "agent_updated"
	EventAgentDeleted       EventType = "agent_deleted"
	EventAgentStatusChanged EventType = "agent_status_changed"
	EventTaskStarted        EventType = "task_started"
	EventTaskCompleted      EventType = "task_completed"
	EventTaskFailed         EventType = "task_failed"
	EventTaskCancelled      EventType = "task_cancelled"
	EventActivityCreated    EventType = "activity_created"
)

// eventEnvelope is the raw inbound frame. Control replies from the
// server ({"status": "pong"} and subscription acks) decode to an empty
// EventType and are skipped by the read loop.
type eventEnvelope struct {
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// TaskEventData is the payload carried by task lifecycle events. It is
// a summary, not the full task; views refetch when they need more.
type TaskEventData struct {
	TaskID      string     `json:"task_id"`
	AgentID     string     `json:"agent_id"`
	Title       string     `json:"title"`
	Status      TaskStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error_message,omitempty"`
}

// agentRef is the payload for agent_deleted.
type agentRef struct {
	AgentID string `json:"agent_id"`
}

// Event is a decoded server push. The payload field matching Type is
// populated; the rest are nil. Raw keeps the undecoded payload.
type Event struct {
	Type     EventType
	Agent    *Agent         // agent_created, agent_updated, agent_status_changed
	AgentID  string         // set for all agent and task events
	Task     *TaskEventData // task_started, task_completed, task_failed, task_cancelled
	Activity *Activity      // activity_created
	Raw      json.RawMessage
}

var errUnknownEvent = errors.New("unknown event type")

// decodeEvent validates the payload against its event type so handlers
// never see half-formed data. Unknown types and undecodable payloads
// come back as errors and the read loop drops them.
func decodeEvent(env eventEnvelope) (Event, error) {
	evt := Event{Type: env.EventType, Raw: env.Data}
	switch env.EventType {
	case EventAgentCreated, EventAgentUpdated, EventAgentStatusChanged:
		var a Agent
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return evt, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		if a.ID == "" {
			return evt, fmt.Errorf("decode %s: missing agent id", env.EventType)
		}
		evt.Agent = &a
		evt.AgentID = a.ID
	case EventAgentDeleted:
		var ref agentRef
		if err := json.Unmarshal(env.Data, &ref); err != nil {
			return evt, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		if ref.AgentID == "" {
			return evt, fmt.Errorf("decode %s: missing agent id", env.EventType)
		}
		evt.AgentID = ref.AgentID
	case EventTaskStarted, EventTaskCompleted, EventTaskFailed, EventTaskCancelled:
		var t TaskEventData
		if err := json.Unmarshal(env.Data, &t); err != nil {
			return evt, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		if t.TaskID == "" {
			return evt, fmt.Errorf("decode %s: missing task id", env.EventType)
		}
		evt.Task = &t
		evt.AgentID = t.AgentID
	case EventActivityCreated:
		var a Activity
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return evt, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		evt.Activity = &a
	default:
		return evt, fmt.Errorf("%w: %q", errUnknownEvent, env.EventType)
	}
	return evt, nil
}
