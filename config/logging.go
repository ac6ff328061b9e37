package config

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigureLogging points the global logger at w, as console output unless
// log-json is set, at debug level when debug is set.
func (c *Config) ConfigureLogging(w io.Writer) {
	var logger zerolog.Logger
	if c.GetBool(ConfigKeyLogJSON) {
		logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	log.Logger = logger

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.GetBool(ConfigKeyDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
