package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInit_ServiceAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(&buf, "dashboard", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("hello", Attrs(WithRequestID(context.Background(), "req-1"))...)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "dashboard" {
		t.Errorf("expected service=dashboard, got %v", line["service"])
	}
	if line["request_id"] != "req-1" {
		t.Errorf("expected request_id=req-1, got %v", line["request_id"])
	}
	if line["msg"] != "hello" {
		t.Errorf("expected msg=hello, got %v", line["msg"])
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No request ID set
	if id := RequestID(ctx); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "test-req-123")
	if id := RequestID(ctx); id != "test-req-123" {
		t.Errorf("expected 'test-req-123', got %q", id)
	}
}

func TestAttrs(t *testing.T) {
	ctx := context.Background()

	if attrs := Attrs(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no request id, got %v", attrs)
	}

	ctx = WithRequestID(ctx, "abc-123")
	if attrs := Attrs(ctx); len(attrs) != 1 {
		t.Fatalf("expected one attr with request id set, got %v", attrs)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseLevel(%q) err=%v, want ok=%v", tt.in, err, tt.ok)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
