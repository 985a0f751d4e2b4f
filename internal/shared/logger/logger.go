package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the structured logging interface used across the inventory
// pipeline. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	WithFields(fields ...Field) Logger
	WithError(err error) Logger
}

// Field represents a logging field
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for constructing a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config represents logger configuration
type Config struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// zeroLogger implements Logger using zerolog
type zeroLogger struct {
	logger zerolog.Logger
}

var (
	globalLogger *zeroLogger
	once         sync.Once
)

// Initialize initializes the global logger. Subsequent calls are no-ops.
func Initialize(config Config) {
	once.Do(func() {
		var output io.Writer
		switch config.Output {
		case "", "stderr":
			output = os.Stderr
		case "stdout":
			output = os.Stdout
		default:
			file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				output = os.Stderr
			} else {
				output = file
			}
		}

		if config.Format == "console" {
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
		}

		zerolog.SetGlobalLevel(parseLevel(config.Level))

		l := zerolog.New(output).With().Timestamp().Logger()
		globalLogger = &zeroLogger{logger: l}
		log.Logger = l
	})
}

// Get returns the global logger, initializing it with defaults if needed
func Get() Logger {
	if globalLogger == nil {
		Initialize(Config{Level: "info", Format: "json", Output: "stderr"})
	}
	return globalLogger
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() Logger {
	return &zeroLogger{logger: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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

func (z *zeroLogger) emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// Debug logs a debug message
func (z *zeroLogger) Debug(msg string, fields ...Field) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info logs an info message
func (z *zeroLogger) Info(msg string, fields ...Field) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (z *zeroLogger) Warn(msg string, fields ...Field) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error logs an error message
func (z *zeroLogger) Error(msg string, fields ...Field) {
	z.emit(z.logger.Error(), msg, fields)
}

// WithFields returns a logger with the fields attached to every event
func (z *zeroLogger) WithFields(fields ...Field) Logger {
	ctx := z.logger.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &zeroLogger{logger: ctx.Logger()}
}

// WithError returns a logger with the error attached to every event
func (z *zeroLogger) WithError(err error) Logger {
	return &zeroLogger{logger: z.logger.With().Err(err).Logger()}
}
