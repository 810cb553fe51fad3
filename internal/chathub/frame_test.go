package chathub_test

import (
	"campusconnect/backend/internal/apperrors"
	"campusconnect/backend/internal/chathub"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	frame, err := chathub.DecodeFrame([]byte(`{"type":"message","content":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, chathub.MessageFrame{Content: "hi"}, frame)
	assert.Equal(t, chathub.FrameMessage, frame.Kind())

	frame, err = chathub.DecodeFrame([]byte(`{"type":"typing","is_typing":false}`))
	require.NoError(t, err)
	assert.Equal(t, chathub.TypingFrame{IsTyping: false}, frame)

	// Empty content is well-formed; length rules belong to the chat service.
	frame, err = chathub.DecodeFrame([]byte(`{"type":"message","content":""}`))
	require.NoError(t, err)
	assert.Equal(t, chathub.MessageFrame{}, frame)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        `hello`,
		"unknown type":    `{"type":"reaction","content":"x"}`,
		"missing type":    `{"content":"x"}`,
		"missing content": `{"type":"message"}`,
		"missing flag":    `{"type":"typing"}`,
		"wrong field":     `{"type":"typing","is_typing":"yes"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := chathub.DecodeFrame([]byte(raw))
			assert.ErrorIs(t, err, apperrors.ErrProtocolViolation)
		})
	}
}
