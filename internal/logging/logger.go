// Package logging provides structured logging for the onion request client.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
	Output io.Writer
}

// Logger wraps zerolog.Logger with additional context.
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new structured logger.
func NewLogger(cfg LogConfig) *Logger {
	// Set global log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer
	if cfg.Output != nil {
		output = cfg.Output
	} else {
		output = os.Stdout
	}

	// Configure format
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	// Create logger with common fields
	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "onion-client").
		Logger()

	return &Logger{Logger: logger}
}

// NewFromLogLevel maps the spec's log_level option ("dev"/"prod") onto
// a concrete Logger: dev gets debug-level console output, prod gets
// info-level JSON.
func NewFromLogLevel(mode string) *Logger {
	if mode == "dev" {
		return NewLogger(LogConfig{Level: "debug", Format: "console"})
	}
	return NewLogger(LogConfig{Level: "info", Format: "json"})
}

// WithComponent returns a logger with component context.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithHop returns a logger with hop identity context.
func (l *Logger) WithHop(ed25519Hex string) *Logger {
	return &Logger{
		Logger: l.With().Str("hop", ed25519Hex).Logger(),
	}
}

// WithDestination returns a logger with destination host context.
func (l *Logger) WithDestination(host string) *Logger {
	return &Logger{
		Logger: l.With().Str("destination", host).Logger(),
	}
}
