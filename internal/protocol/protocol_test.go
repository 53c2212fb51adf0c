package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"event":"chat","payload":{"text":"hi"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Event != EventChat {
		t.Errorf("Expected chat event, got %s", env.Event)
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Error("Expected error for missing event name")
	}
}

func TestParseJoinValidation(t *testing.T) {
	if _, err := ParseJoin(json.RawMessage(`{"name":"alice"}`)); err == nil {
		t.Error("Expected error for missing roomId")
	}
	if _, err := ParseJoin(json.RawMessage(`{"roomId":"r1"}`)); err == nil {
		t.Error("Expected error for missing name")
	}
	if _, err := ParseJoin(nil); err == nil {
		t.Error("Expected error for missing payload")
	}

	p, err := ParseJoin(json.RawMessage(`{"name":"alice","userId":"u1","roomId":"r1","host":true}`))
	if err != nil {
		t.Fatalf("ParseJoin failed: %v", err)
	}
	if p.Name != "alice" || p.RoomID != "r1" || !p.Host {
		t.Errorf("Unexpected payload: %+v", p)
	}
}

func TestParseBoardRequiresData(t *testing.T) {
	if _, err := ParseBoard(json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for missing data field")
	}

	p, err := ParseBoard(json.RawMessage(`{"data":""}`))
	if err != nil {
		t.Fatalf("ParseBoard failed: %v", err)
	}
	if string(p.Data) != `""` {
		t.Errorf("Empty payload should survive parsing, got %s", p.Data)
	}
}

func TestParseChatRequiresText(t *testing.T) {
	if _, err := ParseChat(json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for missing text field")
	}
	if _, err := ParseChat(json.RawMessage(`{"text":42}`)); err == nil {
		t.Error("Expected error for non-string text")
	}

	p, err := ParseChat(json.RawMessage(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("ParseChat failed: %v", err)
	}
	if p.Text != "hello" {
		t.Errorf("Expected hello, got %q", p.Text)
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(EventReady, nil)
	if env.Payload != nil {
		t.Error("Nil payload should produce an empty payload field")
	}

	env = NewEnvelope(EventError, ErrorPayload{Reason: "nope"})
	var p ErrorPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Reason != "nope" {
		t.Errorf("Expected reason nope, got %q", p.Reason)
	}
}
