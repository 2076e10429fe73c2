package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit_Reconfigures(t *testing.T) {
	// Logging before Init lazily configures at info; a later Init with the
	// real level must still take effect.
	Info("boot message before configuration")
	if get().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug enabled before Init(debug)")
	}

	Init("debug")
	if !get().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Init(debug) did not reconfigure the handler")
	}

	Init("error")
	if get().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Init(error) did not lower the handler")
	}
}

func TestNormalize_BareError(t *testing.T) {
	args := normalize([]any{"some error value"})
	if len(args) != 2 || args[0] != "error" {
		t.Fatalf("normalize odd args = %v, want error key prepended", args)
	}

	even := normalize([]any{"k", "v"})
	if len(even) != 2 || even[0] != "k" {
		t.Fatalf("normalize even args = %v, want unchanged", even)
	}
}
