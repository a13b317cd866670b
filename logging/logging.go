// Package logging configures the service-wide structured logger.
//
// The registry daemon logs with zerolog: low allocation, leveled, and easy
// to wire into the per-request "data" slot C5 attaches to every request
// (spec.md 4.5c). The teacher's common.Logger (logrus, see
// common/logging.go) still backs the database migration runner, which
// predates this component and whose output is infrequent enough that the
// extra dependency isn't worth trading out — see DESIGN.md.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. level accepts zerolog's usual names
// (debug, info, warn, error); unknown values fall back to info, matching
// the teacher's EnvConfig default-on-parse-failure posture.
func New(level string, serviceName string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return logger
}
