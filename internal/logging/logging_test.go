package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}

	if got := GetRequestID(nil); got != "" { //nolint:staticcheck // nil context is part of the contract
		t.Errorf("GetRequestID(nil) = %q, want empty", got)
	}
}

func TestFromContext(t *testing.T) {
	base := slog.Default()

	t.Run("with request id returns derived logger", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-456")
		logger := FromContext(ctx, base)
		if logger == base {
			t.Error("expected a derived logger when request id is present")
		}
	})

	t.Run("without request id returns same logger", func(t *testing.T) {
		logger := FromContext(context.Background(), base)
		if logger != base {
			t.Error("expected the same logger when no request id is present")
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  ERROR ", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
