package logging

import (
	"context"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	traceIDKey
	loggerKey
)

// WithRequestIDCtx returns a context carrying the request ID.
func WithRequestIDCtx(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTraceIDCtx returns a context carrying the trace ID.
func WithTraceIDCtx(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceIDFromCtx extracts the trace ID from the context.
func TraceIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithLoggerCtx returns a context carrying l.
func WithLoggerCtx(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFromCtx returns the logger stored in ctx, or nil.
func LoggerFromCtx(ctx context.Context) *Logger {
	l, _ := ctx.Value(loggerKey).(*Logger)
	return l
}

// FromCtx returns the logger stored in ctx, falling back to the global logger,
// tagged with any request and trace IDs found in ctx.
func FromCtx(ctx context.Context) *Logger {
	l := LoggerFromCtx(ctx)
	if l == nil {
		l = Global()
	}
	if id := RequestIDFromCtx(ctx); id != "" && id != l.RequestID() {
		l = l.WithRequestID(id)
	}
	if id := TraceIDFromCtx(ctx); id != "" {
		l = l.WithTraceID(id)
	}
	return l
}
