package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientQuestion MessageType = "client_question"
	TypeClientSettings MessageType = "client_settings"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientQuestion struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ClientSettings struct {
	Type              MessageType `json:"type"`
	SessionID         string      `json:"session_id"`
	Model             *string     `json:"model,omitempty"`
	MemoryLength      *int        `json:"memory_length,omitempty"`
	AdditionalContext *string     `json:"additional_context,omitempty"`
}

type AssistantReply struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Question  string      `json:"question"`
	Text      string      `json:"text"`
	Model     string      `json:"model"`
	LatencyMS int64       `json:"latency_ms"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientQuestion:
		var msg ClientQuestion
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid client_question")
		}
		return msg, nil
	case TypeClientSettings:
		var msg ClientSettings
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_settings")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// TypeOf returns the message type of any known payload.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case ClientQuestion:
		return m.Type, true
	case ClientSettings:
		return m.Type, true
	case AssistantReply:
		return m.Type, true
	case SystemEvent:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
