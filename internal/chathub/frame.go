package chathub

import (
	"campusconnect/backend/internal/apperrors"
	"encoding/json"
)

// FrameKind is the closed set of inbound client frame types.
type FrameKind string

const (
	FrameMessage FrameKind = "message"
	FrameTyping  FrameKind = "typing"
)

// Frame is a decoded, validated inbound frame: MessageFrame or TypingFrame.
type Frame interface {
	Kind() FrameKind
}

type MessageFrame struct {
	Content string
}

func (MessageFrame) Kind() FrameKind { return FrameMessage }

type TypingFrame struct {
	IsTyping bool
}

func (TypingFrame) Kind() FrameKind { return FrameTyping }

type rawFrame struct {
	Type     FrameKind `json:"type"`
	Content  *string   `json:"content"`
	IsTyping *bool     `json:"is_typing"`
}

// DecodeFrame parses one client frame. Unknown types and missing required
// fields are protocol violations.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.ProtocolViolation("malformed frame: %v", err)
	}

	switch raw.Type {
	case FrameMessage:
		if raw.Content == nil {
			return nil, apperrors.ProtocolViolation("message frame without content")
		}
		return MessageFrame{Content: *raw.Content}, nil
	case FrameTyping:
		if raw.IsTyping == nil {
			return nil, apperrors.ProtocolViolation("typing frame without is_typing")
		}
		return TypingFrame{IsTyping: *raw.IsTyping}, nil
	default:
		return nil, apperrors.ProtocolViolation("unknown frame type %q", raw.Type)
	}
}
