package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"predictmax/internal/config"
)

func TestNew_LevelFallback(t *testing.T) {
	l, err := New(config.LogConfig{Level: "chatty"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) || l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("unknown level should fall back to info")
	}
}

func TestNew_Debug(t *testing.T) {
	l, err := New(config.LogConfig{Level: "DEBUG", Development: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug not enabled")
	}
}

func TestNew_UnknownEncoding(t *testing.T) {
	if _, err := New(config.LogConfig{Encoding: "xml"}); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}
