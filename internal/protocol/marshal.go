package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message is the wire envelope.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"` // unix milliseconds, server-set
}

var ErrUnknownMessageType = errors.New("unknown message type")

// Encode builds an envelope around the payload.
func Encode(msgType string, payload any, now time.Time) ([]byte, error) {
	msg := Message{Type: msgType, Timestamp: now.UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// Decode parses an envelope without touching the payload.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: empty type", ErrUnknownMessageType)
	}
	return msg, nil
}

// DecodePayload parses the envelope's payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: missing payload", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}
