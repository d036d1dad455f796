package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger emits structured JSON log records. The zero value is not usable;
// construct with NewLogger. Derived loggers returned by WithField, WithFields
// and WithError share the underlying handler, so chaining is cheap.
type Logger struct {
	sl    *slog.Logger
	level LogLevel
}

// NewLogger builds a JSON logger writing to output at the given minimum
// level. A nil output defaults to stdout.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level.slogLevel(),
	})
	return &Logger{sl: slog.New(handler), level: level}
}

// WithField returns a derived logger carrying an extra attribute.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{sl: l.sl.With(key, value), level: l.level}
}

// WithFields returns a derived logger carrying the given attributes.
// Keys are attached in sorted order so output is deterministic.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &Logger{sl: l.sl.With(args...), level: l.level}
}

// WithError returns a derived logger carrying the error message under the
// "error" key. A nil error returns the receiver unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.sl.Debug(message) }
func (l *Logger) Info(message string)  { l.sl.Info(message) }
func (l *Logger) Warn(message string)  { l.sl.Warn(message) }
func (l *Logger) Error(message string) { l.sl.Error(message) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sl.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.sl.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sl.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sl.Error(fmt.Sprintf(format, args...))
}
