package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"bogus":   LogLevelInfo,
		"":        LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New(Config{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "agent"})
	require.NoError(t, err)
	defer closer.Close()

	l.Debug("hidden")
	l.Info("agent.iteration.start", "iteration", 1)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "agent.iteration.start", rec["msg"])
	assert.Equal(t, "agent", rec["component"])
	assert.EqualValues(t, 1, rec["iteration"])
}

func TestNew_FanOutToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "agent.log")

	l, closer, err := New(Config{Level: LogLevelDebug, Format: "text", Output: &buf, File: path})
	require.NoError(t, err)

	l.Warn("tool.call.error", "tool", "execute_shell")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "tool.call.error")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tool":"execute_shell"`)
}

func TestNew_AutoFormatNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Format: "auto", Output: &buf})
	require.NoError(t, err)

	l.Info("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Level: LogLevelDebug, Format: "json", Output: &buf})
	require.NoError(t, err)

	LogToolCall(l, "execute_shell", 5*time.Millisecond, nil)
	LogToolCall(l, "execute_shell", time.Millisecond, errors.New("boom"))

	assert.Contains(t, buf.String(), "tool.call.success")
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	var buf bytes.Buffer
	l, _, _ := New(Config{Output: &buf})
	assert.Same(t, l, OrNoOp(l))
}
