package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		enable   slog.Level
		disabled slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info level", "info", slog.LevelInfo, slog.LevelDebug},
		{"default warn", "", slog.LevelWarn, slog.LevelInfo},
		{"unknown falls back to warn", "verbose", slog.LevelWarn, slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewWithWriter(tt.level, io.Discard)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
			if logger.Enabled(ctx, tt.disabled) {
				t.Fatalf("expected level %s to be disabled", tt.disabled)
			}
		})
	}
}

func TestWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).With("run_id", "abc")
	logger.Info("stage complete", "stage", "plan")

	out := buf.String()
	for _, want := range []string{"stage complete", "run_id=abc", "stage=plan"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if !ValidLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if ValidLevel("trace") {
		t.Error("expected trace to be invalid")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("discard logger should not enable warn")
	}
}
