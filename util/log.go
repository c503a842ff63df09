package util

import (
	"testing"

	"github.com/go-kit/log"
)

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// TestLogger returns a logger that routes through t.Log, so log lines
// show up attached to the failing test.
func TestLogger(t testing.TB) log.Logger {
	return log.NewSyncLogger(log.NewLogfmtLogger(testWriter{t: t}))
}
