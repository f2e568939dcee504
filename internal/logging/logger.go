// Package logging provides a unified logging interface for the exponentiation
// engine. It abstracts the underlying logging implementation, allowing
// consistent logging across different components while supporting multiple
// backends (zerolog, std log).
//
// Drivers additionally rely on two conventions from this package: a settable
// prefix (the display form of the number under test, carried on every line)
// and ReportParam for structured one-off facts such as the FFT description.
package logging

import (
	"io"
	stdlog "log"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the unified logging interface used across the application.
// It provides a consistent API for logging at different levels.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Error logs an error message with the associated error.
	Error(msg string, err error, fields ...Field)

	// Debug logs a debug message.
	Debug(msg string, fields ...Field)

	// SetPrefix replaces the prefix attached to subsequent messages.
	// An empty string clears it.
	SetPrefix(prefix string)

	// Prefix returns the current prefix.
	Prefix() string

	// ReportParam records a structured parameter (e.g. "fft_desc", "fft_len")
	// describing the current run.
	ReportParam(name string, value any)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// ZerologAdapter adapts a zerolog.Logger to the Logger interface.
type ZerologAdapter struct {
	logger zerolog.Logger
	prefix string
}

// NewZerologAdapter creates a new Logger backed by zerolog.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// NewDefaultLogger creates a Logger with sensible defaults for the application.
func NewDefaultLogger() *ZerologAdapter {
	return NewZerologAdapter(
		zerolog.New(os.Stderr).With().Timestamp().Logger(),
	)
}

// NewLogger creates a Logger writing to the specified output.
func NewLogger(w io.Writer, component string) *ZerologAdapter {
	return NewZerologAdapter(
		zerolog.New(w).With().Str("component", component).Timestamp().Logger(),
	)
}

func (z *ZerologAdapter) applyFields(event *zerolog.Event, fields []Field) *zerolog.Event {
	if z.prefix != "" {
		event = event.Str("prefix", z.prefix)
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		case int64:
			event = event.Int64(f.Key, v)
		case uint64:
			event = event.Uint64(f.Key, v)
		case float64:
			event = event.Float64(f.Key, v)
		case error:
			event = event.Err(v)
		case bool:
			event = event.Bool(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	return event
}

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, fields ...Field) {
	event := z.logger.Info()
	z.applyFields(event, fields).Msg(msg)
}

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, err error, fields ...Field) {
	event := z.logger.Error().Err(err)
	z.applyFields(event, fields).Msg(msg)
}

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, fields ...Field) {
	event := z.logger.Debug()
	z.applyFields(event, fields).Msg(msg)
}

// SetPrefix replaces the message prefix.
func (z *ZerologAdapter) SetPrefix(prefix string) {
	z.prefix = prefix
}

// Prefix returns the current message prefix.
func (z *ZerologAdapter) Prefix() string {
	return z.prefix
}

// ReportParam records a structured run parameter at info level.
func (z *ZerologAdapter) ReportParam(name string, value any) {
	z.applyFields(z.logger.Info().Str("param", name), []Field{{Key: "value", Value: value}}).
		Msg("run parameter")
}

// StdLoggerAdapter adapts a standard log.Logger to the Logger interface.
// This is useful for backward compatibility with code using log.Logger.
type StdLoggerAdapter struct {
	logger *stdlog.Logger
	prefix string
}

// NewStdLoggerAdapter creates a new Logger backed by standard log.Logger.
func NewStdLoggerAdapter(logger *stdlog.Logger) *StdLoggerAdapter {
	return &StdLoggerAdapter{logger: logger}
}

// Info logs an informational message.
func (s *StdLoggerAdapter) Info(msg string, fields ...Field) {
	if len(fields) == 0 {
		s.logger.Println("[INFO]", s.prefix+msg)
	} else {
		s.logger.Printf("[INFO] %s%s %v\n", s.prefix, msg, fields)
	}
}

// Error logs an error message.
func (s *StdLoggerAdapter) Error(msg string, err error, fields ...Field) {
	if len(fields) == 0 {
		s.logger.Printf("[ERROR] %s%s: %v\n", s.prefix, msg, err)
	} else {
		s.logger.Printf("[ERROR] %s%s: %v %v\n", s.prefix, msg, err, fields)
	}
}

// Debug logs a debug message.
func (s *StdLoggerAdapter) Debug(msg string, fields ...Field) {
	if len(fields) == 0 {
		s.logger.Println("[DEBUG]", s.prefix+msg)
	} else {
		s.logger.Printf("[DEBUG] %s%s %v\n", s.prefix, msg, fields)
	}
}

// SetPrefix replaces the message prefix.
func (s *StdLoggerAdapter) SetPrefix(prefix string) {
	s.prefix = prefix
}

// Prefix returns the current message prefix.
func (s *StdLoggerAdapter) Prefix() string {
	return s.prefix
}

// ReportParam records a structured run parameter.
func (s *StdLoggerAdapter) ReportParam(name string, value any) {
	s.logger.Printf("[INFO] %sparam %s=%v\n", s.prefix, name, value)
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{ prefix string }

// Info implements Logger.
func (n *NopLogger) Info(string, ...Field) {}

// Error implements Logger.
func (n *NopLogger) Error(string, error, ...Field) {}

// Debug implements Logger.
func (n *NopLogger) Debug(string, ...Field) {}

// SetPrefix implements Logger.
func (n *NopLogger) SetPrefix(prefix string) { n.prefix = prefix }

// Prefix implements Logger.
func (n *NopLogger) Prefix() string { return n.prefix }

// ReportParam implements Logger.
func (n *NopLogger) ReportParam(string, any) {}
