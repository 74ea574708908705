package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceIDContext(context.Background(), "trace-1")

	if got := GetTraceID(ctx); got != "trace-1" {
		t.Errorf("expected trace-1, got %q", got)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("expected empty trace id, got %q", got)
	}
}

func TestNewWithFormat_Level(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		log := NewWithFormat("test", tt.level, "console")
		if !log.Core().Enabled(tt.expected) {
			t.Errorf("level %q: expected %s enabled", tt.level, tt.expected)
		}
		if tt.expected > zapcore.DebugLevel && log.Core().Enabled(tt.expected-1) {
			t.Errorf("level %q: expected %s disabled", tt.level, tt.expected-1)
		}
	}
}
