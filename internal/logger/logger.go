package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger: human-readable console output in development, JSON elsewhere.
func New(env string, level ...string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var log zerolog.Logger
	if env == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stdout).With().Timestamp().Str("service", "ewaste-api").Logger()
	}

	lvl := zerolog.InfoLevel
	if len(level) > 0 {
		lvl = parseLevel(level[0])
	}
	return log.Level(lvl)
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
