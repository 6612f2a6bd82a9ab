// Package logging configures the global zerolog logger for the gateway
// binaries. Local processes get a human-readable console writer; Lambda
// keeps raw JSON lines so CloudWatch can index the fields.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment
// variables. AYURLENS_LOG_LEVEL controls the log level: debug, info, warn,
// error (default: info).
func Init() {
	setLevel()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitLambda initializes the global logger for Lambda execution. Output stays
// structured JSON on stderr; the console writer is skipped.
func InitLambda() {
	setLevel()
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func setLevel() {
	switch os.Getenv("AYURLENS_LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
