package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a stdout console logger tagged with app as the global
// zerolog logger.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := NewLogger(app, output, true)
	log.Logger = logger
	return logger
}

func NewLogger(app string, w io.Writer, timestamp bool) zerolog.Logger {
	ctx := zerolog.New(w).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Str("app", app).Logger()
}

// LogOperation reports one codec call: debug when it succeeded, warn when
// it failed.
func LogOperation(logger zerolog.Logger, op Operation) {
	event := logger.Debug()
	if op.Err != nil {
		event = logger.Warn().Err(op.Err)
	}
	event.
		Str("op", op.Name).
		Str("format", op.Format).
		Int("bytes", op.Bytes).
		Dur("duration", op.Duration).
		Msg("codec_operation")
}
