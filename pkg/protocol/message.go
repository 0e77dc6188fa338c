package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of dashboard WebSocket message.
type MessageType string

const (
	// Engine → dashboard messages
	TypeState      MessageType = "state"      // Full face snapshot
	TypeCommand    MessageType = "command"    // Packed wire command
	TypeAdjustment MessageType = "adjustment" // Guardrail adjustment
	TypeConv       MessageType = "conv"       // Conversation transition

	// Dashboard → engine messages
	TypeEvent MessageType = "event" // Injected session event

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all dashboard WebSocket messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// CommandData wraps a packed command for the JSON stream. Raw is base64 in
// transit; decoded bytes are the exact firmware payload.
type CommandData struct {
	Raw []byte `json:"raw"`
}

// ConvData describes a conversation transition for the dashboard.
type ConvData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Session string `json:"session,omitempty"`
}

// EventData is a session event injected from the dashboard, used by the
// design simulator's scenario controls.
type EventData struct {
	Name      string  `json:"name"`
	Mood      string  `json:"mood,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Button    string  `json:"button,omitempty"`
	Action    string  `json:"action,omitempty"`
	Fault     string  `json:"fault,omitempty"`
}
