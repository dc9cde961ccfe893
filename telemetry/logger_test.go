package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func parseEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries at warn level, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("levels = %v, %v, want warn, error", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache hit",
		Field{Key: "key", Value: "ai-cache:abc..."},
		Field{Key: "size", Value: 42},
	)

	entries := parseEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "cache hit" {
		t.Errorf("msg = %v, want cache hit", entry["msg"])
	}
	if entry["key"] != "ai-cache:abc..." {
		t.Errorf("key = %v", entry["key"])
	}
	if entry["size"] != float64(42) {
		t.Errorf("size = %v, want 42", entry["size"])
	}
	if entry["timestamp"] == nil {
		t.Error("entry missing timestamp")
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "call received",
		Field{Key: "params", Value: map[string]any{"prompt": "user content"}},
		Field{Key: "api_key", Value: "sk-secret"},
		Field{Key: "modelId", Value: "gpt-4"},
	)

	entries := parseEntries(t, &buf)
	entry := entries[0]
	if entry["params"] != "[REDACTED]" {
		t.Errorf("params = %v, want [REDACTED]", entry["params"])
	}
	if entry["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", entry["api_key"])
	}
	if entry["modelId"] != "gpt-4" {
		t.Errorf("modelId = %v, want gpt-4", entry["modelId"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	scoped := logger.With("cache.store")

	scoped.Info(context.Background(), "saved")
	logger.Info(context.Background(), "plain")

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["component"] != "cache.store" {
		t.Errorf("scoped component = %v, want cache.store", entries[0]["component"])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("parent logger should not inherit the child's component")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Info(ctx, "concurrent entry")
			}
		}()
	}
	wg.Wait()

	entries := parseEntries(t, &buf)
	if len(entries) != 200 {
		t.Errorf("got %d entries, want 200 (lines must not interleave)", len(entries))
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	// Must not panic, and With must keep returning a usable logger.
	logger.With("x").Error(context.Background(), "ignored", Field{Key: "k", Value: "v"})
}
