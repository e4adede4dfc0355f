package protocol

import (
	"encoding/json"
	"testing"

	"inputcap/internal/input"
)

func TestParseAndDecodeInvoke(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"invoke","id":"7","payload":{"command":"start_input_listener"}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if msg.Type != TypeInvoke || msg.ID != "7" {
		t.Errorf("Unexpected envelope: %+v", msg)
	}

	var p InvokePayload
	if err := Decode(msg, &p); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Command != "start_input_listener" {
		t.Errorf("Expected command 'start_input_listener', got %q", p.Command)
	}
}

func TestDecodeTypedPayload(t *testing.T) {
	msg := Message{
		Type:    TypeEvent,
		Payload: EventPayload{Event: "input-event", Data: input.Normalize(input.KeyPressed{Key: "A"})},
	}

	var p EventPayload
	if err := Decode(msg, &p); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Data.Type != input.KeyPress || *p.Data.Key != "A" {
		t.Errorf("Unexpected event data: %+v", p.Data)
	}
}

func TestParseRejectsMissingType(t *testing.T) {
	if _, err := Parse([]byte(`{"payload":{}}`)); err == nil {
		t.Error("Expected error for message without type")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestDecodeWithoutPayload(t *testing.T) {
	var p InvokePayload
	if err := Decode(Message{Type: TypePing}, &p); err == nil {
		t.Error("Expected error decoding empty payload")
	}
}

func TestEventWireFormat(t *testing.T) {
	data, err := json.Marshal(Message{
		Type:    TypeEvent,
		Payload: EventPayload{Event: "input-event", Data: input.Normalize(input.ButtonPressed{Button: input.ButtonLeft})},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"type":"event","payload":{"event":"input-event","data":{"event_type":"mouse_press","key":null,"mouse_x":null,"mouse_y":null,"button":"Left","wheel_dx":null,"wheel_dy":null}}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
