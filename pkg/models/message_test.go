package models

import (
	"encoding/json"
	"testing"
)

func TestToolCallArgumentsRoundTrip(t *testing.T) {
	call := ToolCall{
		ID:        "t1",
		Name:      "get_time",
		Input: json.RawMessage(`{"tz":"Asia/Tokyo"}`),
	}
	raw, err := json.Marshal(call)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got ToolCall
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != call.ID || got.Name != call.Name {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if string(got.Input) != string(call.Input) {
		t.Fatalf("arguments mismatch: got %s want %s", got.Input, call.Input)
	}
}

func TestToolMessageReferencesToolCallID(t *testing.T) {
	assistant := Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ID: "t1", Name: "search", Input: json.RawMessage(`{"q":"A"}`)},
		},
	}
	reply := Message{
		Role:       RoleTool,
		ToolCallID: "t1",
		Name:       "search",
		Content:    "result for A",
	}
	if reply.ToolCallID != assistant.ToolCalls[0].ID {
		t.Fatalf("tool reply does not reference the preceding tool call")
	}
}
