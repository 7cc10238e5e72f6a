package client

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEvent_AgentPayloads(t *testing.T) {
	data := json.RawMessage(`{"id":"a1","name":"Research Bot","status":"active","agent_type":"analytical"}`)

	for _, typ := range []EventType{EventAgentCreated, EventAgentUpdated, EventAgentStatusChanged} {
		t.Run(string(typ), func(t *testing.T) {
			evt, err := decodeEvent(eventEnvelope{EventType: typ, Data: data})
			if err != nil {
				t.Fatalf("decodeEvent() error: %v", err)
			}
			if evt.Agent == nil {
				t.Fatal("Agent payload not populated")
			}
			if evt.Agent.ID != "a1" || evt.Agent.Status != AgentActive {
				t.Errorf("agent = %+v, want id a1 status active", evt.Agent)
			}
			if evt.AgentID != "a1" {
				t.Errorf("AgentID = %q, want a1", evt.AgentID)
			}
			if evt.Task != nil || evt.Activity != nil {
				t.Error("unrelated payload fields populated")
			}
		})
	}
}

func TestDecodeEvent_AgentDeleted(t *testing.T) {
	evt, err := decodeEvent(eventEnvelope{
		EventType: EventAgentDeleted,
		Data:      json.RawMessage(`{"agent_id":"a9"}`),
	})
	if err != nil {
		t.Fatalf("decodeEvent() error: %v", err)
	}
	if evt.AgentID != "a9" {
		t.Errorf("AgentID = %q, want a9", evt.AgentID)
	}
	if evt.Agent != nil {
		t.Error("Agent should be nil for a delete event")
	}
}

func TestDecodeEvent_TaskPayloads(t *testing.T) {
	data := json.RawMessage(`{"task_id":"t1","agent_id":"a1","title":"crawl docs","status":"completed"}`)

	for _, typ := range []EventType{EventTaskStarted, EventTaskCompleted, EventTaskFailed, EventTaskCancelled} {
		t.Run(string(typ), func(t *testing.T) {
			evt, err := decodeEvent(eventEnvelope{EventType: typ, Data: data})
			if err != nil {
				t.Fatalf("decodeEvent() error: %v", err)
			}
			if evt.Task == nil {
				t.Fatal("Task payload not populated")
			}
			if evt.Task.TaskID != "t1" || evt.Task.Status != TaskCompleted {
				t.Errorf("task = %+v, want id t1 status completed", evt.Task)
			}
			if evt.AgentID != "a1" {
				t.Errorf("AgentID = %q, want a1", evt.AgentID)
			}
		})
	}
}

func TestDecodeEvent_ActivityCreated(t *testing.T) {
	evt, err := decodeEvent(eventEnvelope{
		EventType: EventActivityCreated,
		Data:      json.RawMessage(`{"id":"ac1","activity_type":"task_completed","status":"success","title":"Task finished"}`),
	})
	if err != nil {
		t.Fatalf("decodeEvent() error: %v", err)
	}
	if evt.Activity == nil {
		t.Fatal("Activity payload not populated")
	}
	if evt.Activity.ActivityType != ActivityTaskCompleted || evt.Activity.Status != ActivitySuccess {
		t.Errorf("activity = %+v", evt.Activity)
	}
}

func TestDecodeEvent_Rejections(t *testing.T) {
	tests := []struct {
		name string
		env  eventEnvelope
	}{
		{"MalformedAgentPayload", eventEnvelope{EventType: EventAgentUpdated, Data: json.RawMessage(`"not an object"`)}},
		{"MissingAgentID", eventEnvelope{EventType: EventAgentCreated, Data: json.RawMessage(`{"name":"nameless"}`)}},
		{"DeletedWithoutID", eventEnvelope{EventType: EventAgentDeleted, Data: json.RawMessage(`{}`)}},
		{"MissingTaskID", eventEnvelope{EventType: EventTaskStarted, Data: json.RawMessage(`{"agent_id":"a1"}`)}},
		{"MalformedActivity", eventEnvelope{EventType: EventActivityCreated, Data: json.RawMessage(`[1,2]`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeEvent(tt.env); err == nil {
				t.Error("decodeEvent() accepted an invalid payload")
			}
		})
	}
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := decodeEvent(eventEnvelope{EventType: "mystery_event", Data: json.RawMessage(`{}`)})
	if !errors.Is(err, errUnknownEvent) {
		t.Errorf("err = %v, want errUnknownEvent", err)
	}
}
