package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	fieldsKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithFields attaches fields that every FromCtx logger down the call chain
// carries, e.g. the order being reconciled.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	prev := fieldsFrom(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey, merged)
}

func fieldsFrom(ctx context.Context) []zap.Field {
	fields, _ := ctx.Value(fieldsKey).([]zap.Field)
	return fields
}

// FromCtx returns the global logger tagged with the request id and any
// fields attached through WithFields.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if fields := fieldsFrom(ctx); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}
