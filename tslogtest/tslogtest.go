// Package tslogtest provides utilities for using [tslog] in tests.
package tslogtest

import (
	"log/slog"

	"github.com/database64128/acn-go/tslog"
)

// Config is [tslog.Config] for use in tests.
type Config tslog.Config

// NewTestLogger creates a new [*tslog.Logger] that writes to t.Logf.
//
// Debug messages are enabled, and colors are off, unless set otherwise in c.
func (c Config) NewTestLogger(t testingLogger) *tslog.Logger {
	tc := tslog.Config(c)
	if tc == (tslog.Config{}) {
		tc.Level = slog.LevelDebug
		tc.NoColor = true
	}
	return tc.NewLogger(testingWriter{t})
}

type testingLogger interface {
	Logf(format string, args ...any)
}

type testingWriter struct {
	t testingLogger
}

func (w testingWriter) Write(p []byte) (n int, err error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
