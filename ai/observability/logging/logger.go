// Package logging provides structured logging for the tripsense core.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// nowFunc is swappable in tests.
var nowFunc = time.Now

// Logger wraps slog with pre-bound fields and context propagation.
type Logger struct {
	handler slog.Handler
	fields  []slog.Attr
}

// Default logger instance, JSON output for production ingestion.
var defaultLogger = NewLogger(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// NewLogger creates a new logger with the given handler.
func NewLogger(h slog.Handler) *Logger {
	if h == nil {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{handler: h}
}

// WithField returns a new logger with an additional pre-bound field.
func (l *Logger) WithField(key string, value any) *Logger {
	fields := make([]slog.Attr, 0, len(l.fields)+1)
	fields = append(fields, l.fields...)
	fields = append(fields, slog.Any(key, value))
	return &Logger{handler: l.handler, fields: fields}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if !l.handler.Enabled(context.Background(), level) {
		return
	}
	record := slog.NewRecord(nowFunc(), level, msg, 0)
	record.AddAttrs(l.fields...)
	// Variadic args are alternating key-value pairs, slog style.
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		record.AddAttrs(slog.Any(key, args[i+1]))
	}
	_ = l.handler.Handle(context.Background(), record)
}

type loggerKey struct{}

// FromContext extracts the logger from context, falling back to the default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// ToContext adds the logger to context.
func ToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Package-level convenience functions using the default logger.

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs an info message using the default logger.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs an error message using the default logger.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
