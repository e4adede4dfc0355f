// Package protocol defines the websocket envelope shared by the server hub
// and the attach client.
package protocol

import (
	"encoding/json"
	"fmt"

	"inputcap/internal/input"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeInvoke is sent by a client to run a named command
	TypeInvoke MessageType = "invoke"

	// TypeResult answers a TypeInvoke with the same ID
	TypeResult MessageType = "result"

	// TypeEvent carries an emitted event to every client
	TypeEvent MessageType = "event"

	// TypeStatus is pushed to a client right after it connects
	TypeStatus MessageType = "status"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages. Payload
// holds a typed struct when sending and raw JSON after decoding.
type Message struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// InvokePayload is the payload for TypeInvoke
type InvokePayload struct {
	Command string `json:"command"`
}

// ResultPayload is the payload for TypeResult
type ResultPayload struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventPayload is the payload for TypeEvent
type EventPayload struct {
	Event string           `json:"event"`
	Data  input.InputEvent `json:"data"`
}

// Parse decodes a raw frame, keeping the payload as raw JSON
func Parse(data []byte) (Message, error) {
	var raw struct {
		Type    MessageType     `json:"type"`
		ID      string          `json:"id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	if raw.Type == "" {
		return Message{}, fmt.Errorf("invalid message: missing type")
	}
	return Message{Type: raw.Type, ID: raw.ID, Payload: raw.Payload}, nil
}

// Decode re-decodes msg.Payload into dst
func Decode(msg Message, dst any) error {
	var data []byte
	switch p := msg.Payload.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	case nil:
		return fmt.Errorf("%s message has no payload", msg.Type)
	default:
		var err error
		if data, err = json.Marshal(p); err != nil {
			return fmt.Errorf("re-encode %s payload: %w", msg.Type, err)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return nil
}
