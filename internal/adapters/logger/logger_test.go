package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.strandlab.net/floe/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing into a bytes.Buffer.
func newTestLogger(t *testing.T, level slog.Level) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	lg := logger.New(level)
	lg.SetOutput(buf, level)
	return lg, buf
}

func TestLogger_Info(t *testing.T) {
	lg, buf := newTestLogger(t, slog.LevelInfo)

	lg.Info("submitted target", "target", "fetch", "submission_id", "sub-1")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "submitted target")
	assert.Contains(t, out, "target=fetch")
	assert.Contains(t, out, "submission_id=sub-1")
}

func TestLogger_DebugFilteredByLevel(t *testing.T) {
	lg, buf := newTestLogger(t, slog.LevelInfo)

	lg.Debug("classified target", "target", "fetch")
	assert.Empty(t, buf.String())

	lg.SetOutput(buf, slog.LevelDebug)
	lg.Debug("classified target", "target", "fetch")
	assert.Contains(t, buf.String(), "classified target")
}

func TestLogger_Warn(t *testing.T) {
	lg, buf := newTestLogger(t, slog.LevelInfo)

	lg.Warn("skipping failed target; retry explicitly to resubmit", "target", "clean")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "target=clean")
}

func TestLogger_Error(t *testing.T) {
	lg, buf := newTestLogger(t, slog.LevelInfo)

	lg.Error(zerr.New("backend unreachable"))

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "operation failed")
	assert.Contains(t, out, "backend unreachable")
}
