package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware enriches the context logger with the request ID.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger groups the recurring log statements of the period flows.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogPeriodCreated(ctx context.Context, key string, totalIncome, totalExpense int64) {
	fields := NewFields().
		WithPeriod(key, totalIncome, totalExpense).
		WithOperation(OpCreate)
	sl.logger.InfoContext(ctx, "Period created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogPeriodUpdated(ctx context.Context, key string, result string) {
	fields := NewFields().WithOperation(OpUpdate)
	fields[FieldPeriodKey] = key
	fields[FieldUpdateResult] = result
	sl.logger.InfoContext(ctx, "Period update finished", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogRejected(ctx context.Context, key, operation string, err error) {
	fields := NewFields().
		WithOperation(operation).
		WithErrorType(ErrorTypeValidation).
		WithError(err)
	fields[FieldPeriodKey] = key
	sl.logger.WarnContext(ctx, "Period rejected", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
