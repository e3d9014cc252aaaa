package testlog

import (
	"context"
	"strings"
	"testing"

	"github.com/danmuck/antkit/internal/logging"
	"github.com/rs/zerolog"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logger := Logger(t)
	logger.Info().Msgf("test=%s", t.Name())
}

// Logger writes through t.Log so output is attached to the test.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.ConsoleWriter{Out: testWriter{t: t}, NoColor: true}).
		With().Str("test", t.Name()).Logger()
}

// Context carries Logger(t) for code that logs through zerolog.Ctx.
func Context(t *testing.T) context.Context {
	t.Helper()
	logger := Logger(t)
	return logger.WithContext(context.Background())
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
