package logging_test

import (
	"bytes"
	"campusconnect/backend/internal/logging"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel("verbose"))
}

func TestNewWithWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "warn")

	log.Info("hidden")
	log.Warn("shown", "group_id", "g1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"group_id":"g1"`)
}
