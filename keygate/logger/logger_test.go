package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func captureHandler(level slog.Level, addSource bool) (*CustomHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	h := NewHandler(level, addSource)
	h.out = &buf
	return h, &buf
}

func TestHandler_AddSource(t *testing.T) {
	h, buf := captureHandler(slog.LevelInfo, true)

	slog.New(h).Info("with source")

	out := buf.String()
	if !strings.Contains(out, "source=logger_test.go:") {
		t.Errorf("output missing source attribute: %q", out)
	}
}

func TestHandler_NoSourceByDefault(t *testing.T) {
	h, buf := captureHandler(slog.LevelInfo, false)

	slog.New(h).Info("without source")

	if strings.Contains(buf.String(), "source=") {
		t.Errorf("output carries source attribute when add_source is off: %q", buf.String())
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	h, buf := captureHandler(slog.LevelWarn, false)

	logger := slog.New(h)
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record emitted below the configured level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandler_TypeTag(t *testing.T) {
	tests := []struct {
		typeAttr string
		wantTag  string
	}{
		{"cmd", "[CMD]"},
		{"db", "[DB]"},
		{"tg", "[TG]"},
		{"", "[SYS]"},
	}

	for _, tt := range tests {
		h, buf := captureHandler(slog.LevelInfo, false)
		logger := slog.New(h)
		if tt.typeAttr != "" {
			logger.Info("msg", slog.String("type", tt.typeAttr))
		} else {
			logger.Info("msg")
		}
		if !strings.Contains(buf.String(), tt.wantTag) {
			t.Errorf("type %q: output %q missing tag %s", tt.typeAttr, buf.String(), tt.wantTag)
		}
	}
}
