package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message leaked at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message missing")
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.DebugLevel)

	ctx := withLogger(context.Background(), logger)
	if got := loggerFromContext(ctx); got != logger {
		t.Error("logger not recovered from context")
	}
	if got := loggerFromContext(context.Background()); got == nil {
		t.Error("missing logger must fall back, not return nil")
	}
}

func TestProgressLogsElapsed(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.DebugLevel)

	p := newProgress(logger)
	p.done("Fetched 3 episodes")

	if !strings.Contains(buf.String(), "Fetched 3 episodes (") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
