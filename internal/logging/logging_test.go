package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kozaktomas/facelens/internal/logging"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := logging.Logger()
	var buf bytes.Buffer
	prev := logger.Out
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(prev) })
	return &buf
}

func TestCallerSkipsHelpers(t *testing.T) {
	buf := captureOutput(t)

	logging.Info(logging.Fields{"k": "v"}, "helper call")

	out := buf.String()
	if !strings.Contains(out, "helper call") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if strings.Contains(out, "[logging.go:") {
		t.Errorf("caller should not be the logging helper, got %q", out)
	}
	if !strings.Contains(out, "[logging_test.go:") || !strings.Contains(out, "[TestCallerSkipsHelpers()]") {
		t.Errorf("expected the test as caller, got %q", out)
	}
}

func TestWithRequestID(t *testing.T) {
	buf := captureOutput(t)

	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	logging.WithRequestID(ctx).Warn("tagged")
	logging.WithRequestID(context.Background()).Warn("untagged")

	out := buf.String()
	if !strings.Contains(out, "req-42") {
		t.Errorf("expected request id in output, got %q", out)
	}
	if !strings.Contains(out, "unknown") {
		t.Errorf("expected unknown request id fallback, got %q", out)
	}
	if !strings.Contains(out, "[logging_test.go:") {
		t.Errorf("expected the test as caller, got %q", out)
	}
}
