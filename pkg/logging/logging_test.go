package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONDefault(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", "")
	l.Debug("hidden")
	l.Info("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 record at info level, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["service"] != "ai-summary" {
		t.Errorf("service = %v, want ai-summary", rec["service"])
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}
}

func TestNewTextDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "TEXT", "debug")
	l.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text record, got %q", buf.String())
	}
}

func TestSetLoggerAndComponent(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(New(&buf, "json", "info"))
	SetLogger(nil) // ignored

	WithComponent("completion").Info("hello")
	if !strings.Contains(buf.String(), `"component":"completion"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
}
