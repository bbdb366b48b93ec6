package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitDefault sets up a console logger before flags are parsed, so early
// startup errors are readable.
func InitDefault() {
	Init("info", "console", false)
}

// Init configures the global logger from the resolved flag/env values.
// Format is "console" or "json"; anything unknown falls back to console.
func Init(level, format string, noColor bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    noColor,
		}).With().Timestamp().Logger()
	}
}
