package observability

import (
	"io"
	"os"
	"time"

	"github.com/danmuck/antkit/internal/logging"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the global console logger for app and returns it.
func InitLogger(app string) zerolog.Logger {
	logger := NewLogger(app, colorable.NewColorableStderr(), !isatty.IsTerminal(os.Stderr.Fd()))
	log.Logger = logger
	return logger
}

// NewLogger builds a console logger on out using the active logging config.
func NewLogger(app string, out io.Writer, forceNoColor bool) zerolog.Logger {
	cfg := logging.Current()
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor || forceNoColor,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}
