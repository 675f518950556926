// Package logger configures the process-wide zerolog logger.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel names the environment variable consulted when no level flag is given.
const EnvLevel = "EPHETZNER_LOG_LEVEL"

// Init installs a human-readable console logger on stderr.
// An empty level falls back to EPHETZNER_LOG_LEVEL and then to info.
func Init(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if level == "" {
		level = os.Getenv(EnvLevel)
	}

	lvl, err := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	log.Logger = log.With().Caller().Logger()

	if err != nil {
		log.Warn().Err(err).Str("level", level).Msg("Unknown log level, using info")
	}
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, err
	}
	return lvl, nil
}
