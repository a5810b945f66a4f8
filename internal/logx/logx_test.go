package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNop_DoesNotPanic(t *testing.T) {
	var l Logger = Nop{}
	l.Error("boom", map[string]any{"x": 1})
	l.Warn("boom", nil)
	l.Info("boom", nil)
	l.Verbose("boom", nil)
}

func TestZapLogger_EmitsJSONWithLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(&buf)

	l.Info("hello", map[string]any{"user": "abc"})

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("failed to decode log line as JSON: %v", err)
	}
	if decoded["level"] != "info" {
		t.Errorf("level = %v, want %q", decoded["level"], "info")
	}
	if decoded["message"] != "hello" {
		t.Errorf("message = %v, want %q", decoded["message"], "hello")
	}
}

func TestZapLogger_VerboseMapsToDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(&buf)

	l.Verbose("trace event", nil)

	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Errorf("expected verbose to log at debug level, got: %s", buf.String())
	}
}

func TestZapLogger_AllSeveritiesWrite(t *testing.T) {
	var buf bytes.Buffer
	l := NewZap(&buf)

	l.Error("e", nil)
	l.Warn("w", nil)
	l.Info("i", nil)
	l.Verbose("v", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d log lines, want 4", len(lines))
	}
}
