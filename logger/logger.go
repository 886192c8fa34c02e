// Package logger provides leveled, printf-style logging for the library,
// backed by zerolog.
package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// --------------------------------------------------------------------------------
// Types

// Interface is the logging surface consumed by the client and transports.
type Interface interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Logger implements Interface on a zerolog.Logger.
type Logger struct {
	log zerolog.Logger
}

var _ Interface = (*Logger)(nil)

// --------------------------------------------------------------------------------
// Constructors

// New creates a Logger writing to w at the given level ("debug", "info",
// "warn", "error", ...).
//
// It returns an error if the level string is not recognized.
func New(level string, w io.Writer) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return &Logger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}, nil
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{log: zerolog.Nop()}
}

// --------------------------------------------------------------------------------
// Methods

// Debug logs a formatted message at debug level.
func (l *Logger) Debug(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

// Info logs a formatted message at info level.
func (l *Logger) Info(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

// Warn logs a formatted message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

// Error logs a formatted message at error level.
func (l *Logger) Error(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
