package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	log, err := NewLogger(&Config{Level: DebugLevel, Format: format, AppName: "calltriage", Version: "test"})
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	return log, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestJSONFormatter_Fields(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.WithEmergencyID("e-1").WithError(errors.New("boom")).Warn("store write failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "store write failed", entry["message"])
	assert.Equal(t, "calltriage", entry["app"])
	assert.Equal(t, "test", entry["version"])
	assert.Equal(t, "e-1", entry["emergency_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestWithField_DoesNotMutateParent(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	child := log.WithField("emergency_type", "fire")
	log.Info("parent")

	entry := decodeLine(t, buf)
	assert.NotContains(t, entry, "emergency_type")

	buf.Reset()
	child.Info("child")
	entry = decodeLine(t, buf)
	assert.Equal(t, "fire", entry["emergency_type"])
}

func TestWithContext(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	log.WithContext(ctx).Info("handled")

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-9", entry["request_id"])
	assert.NotContains(t, entry, "emergency_id")
}

func TestLogAPIRequest_ServerErrorsAtErrorLevel(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.LogAPIRequest("POST", "/api/v1/analyze-emergency", 500, 120*time.Millisecond, "req-1")
	entry := decodeLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(500), entry["status_code"])
	assert.Equal(t, float64(120), entry["duration_ms"])

	buf.Reset()
	log.LogAPIRequest("GET", "/health", 200, time.Millisecond, "")
	entry = decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.NotContains(t, entry, "request_id")
}

func TestTextFormatter(t *testing.T) {
	log, buf := newBufferLogger(t, "text")

	log.WithFields(map[string]interface{}{"b": 2, "a": 1}).Info("ready")

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "[calltriage]")
	assert.True(t, strings.HasSuffix(line, "ready a=1 b=2\n"), line)
}

func TestSetLevel(t *testing.T) {
	log, buf := newBufferLogger(t, "json")
	log.SetLevel(WarnLevel)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
