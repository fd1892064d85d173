package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithNodeID(WithJourneyID(NewLogger(&buf, "", slog.LevelInfo), "j1"), "n1")

	logger.Info("form ready")
	logger.Debug("hidden")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "form ready" || entry["journey_id"] != "j1" || entry["node_id"] != "n1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	WithBlueprintID(NewLogger(&buf, "TEXT", slog.LevelWarn), "b1").Warn("incomplete")

	out := buf.String()
	if !strings.Contains(out, "msg=incomplete") || !strings.Contains(out, "blueprint_id=b1") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestFromContext(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger without a request logger")
	}

	reqLogger := fallback.With("request_id", "r1")
	ctx := WithLogger(context.Background(), reqLogger)
	if got := FromContext(ctx, fallback); got != reqLogger {
		t.Error("expected logger stored in context")
	}
}
