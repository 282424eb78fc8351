package radiance

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Field is a structured logging key-value pair.
type Field struct {
	Key   string
	Value any
}

// Logger receives decoder diagnostics.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every message.
	With(fields ...Field) Logger
}

// NoOpLogger discards all messages.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...Field) {}
func (NoOpLogger) Info(string, ...Field)  {}
func (NoOpLogger) Warn(string, ...Field)  {}
func (NoOpLogger) Error(string, ...Field) {}

// With returns the same no-op logger.
func (l NoOpLogger) With(...Field) Logger { return l }

// Level is a logging severity.
type Level int

// Severities in increasing order.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps debug, info, warn and error to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// StandardLogger writes key=value formatted lines to a log.Logger.
type StandardLogger struct {
	// Logger defaults to stderr with an "hdr: " prefix.
	Logger *log.Logger
	// MinLevel drops messages below it.
	MinLevel Level

	fields []Field
}

func (l *StandardLogger) print(level Level, tag, msg string, fields []Field) {
	if level < l.MinLevel {
		return
	}
	if l.Logger == nil {
		l.Logger = log.New(os.Stderr, "hdr: ", log.LstdFlags)
	}

	var sb strings.Builder
	sb.WriteString(tag)
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for _, f := range append(append([]Field(nil), l.fields...), fields...) {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(formatFieldValue(f.Value))
	}
	l.Logger.Print(sb.String())
}

// formatFieldValue quotes strings with whitespace and errors.
func formatFieldValue(value any) string {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " \t\r\n") {
			return `"` + v + `"`
		}
		return v
	case error:
		return `"` + v.Error() + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *StandardLogger) Debug(msg string, fields ...Field) {
	l.print(LevelDebug, "[DEBUG]", msg, fields)
}

func (l *StandardLogger) Info(msg string, fields ...Field) {
	l.print(LevelInfo, "[INFO]", msg, fields)
}

func (l *StandardLogger) Warn(msg string, fields ...Field) {
	l.print(LevelWarn, "[WARN]", msg, fields)
}

func (l *StandardLogger) Error(msg string, fields ...Field) {
	l.print(LevelError, "[ERROR]", msg, fields)
}

// With returns a logger sharing the output that prepends fields to every message.
func (l *StandardLogger) With(fields ...Field) Logger {
	return &StandardLogger{
		Logger:   l.Logger,
		MinLevel: l.MinLevel,
		fields:   append(append([]Field(nil), l.fields...), fields...),
	}
}
