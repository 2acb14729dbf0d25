package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_WritesServiceAndRun(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "quant", slog.LevelInfo)

	ctx := WithRunID(context.Background(), "run-1")
	log.Info("selected", LogWithRun(ctx)...)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %v (%s)", err, buf.String())
	}
	if rec["service"] != "quant" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["run_id"] != "run-1" {
		t.Errorf("run_id = %v", rec["run_id"])
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "quant", slog.LevelWarn)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No run ID set
	if rid := RunID(ctx); rid != "" {
		t.Errorf("expected empty run id, got %q", rid)
	}

	// Set and retrieve
	ctx = WithRunID(ctx, "test-run-123")
	if rid := RunID(ctx); rid != "test-run-123" {
		t.Errorf("expected 'test-run-123', got %q", rid)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Error("expected distinct run ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("run id %q is not a UUID: %v", a, err)
	}
}

func TestLogWithRun(t *testing.T) {
	if attrs := LogWithRun(context.Background()); attrs != nil {
		t.Errorf("expected nil attrs when no run id, got %v", attrs)
	}
	attrs := LogWithRun(WithRunID(context.Background(), "abc-123"))
	if len(attrs) != 1 {
		t.Fatalf("expected one attr, got %d", len(attrs))
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
