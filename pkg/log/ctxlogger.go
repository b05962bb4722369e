package log

import (
	"context"

	"go.uber.org/zap"
)

type ctxMarkerLogger struct{}

var (
	ctxKeyLogger = &ctxMarkerLogger{}
)

type ctxLogger struct {
	logger *zap.SugaredLogger
	fields []interface{}
}

// AddFields appends fields to the logger carried by ctx. It is a no-op when
// ctx carries no logger.
func AddFields(ctx context.Context, fields ...interface{}) {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return
	}
	l.fields = append(l.fields, fields...)
}

// ExtractLogger returns the call-scoped logger with every field added so far.
// Contexts without a logger get the default one.
func ExtractLogger(ctx context.Context) *zap.SugaredLogger {
	l, ok := ctx.Value(ctxKeyLogger).(*ctxLogger)
	if !ok || l == nil {
		return Default()
	}
	return l.logger.With(l.fields...)
}

// ToContext puts logger into ctx for extraction later.
func ToContext(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, &ctxLogger{logger: logger})
}

// WithFields derives a context whose logger starts from the current one plus fields.
// Unlike AddFields the parent context is left untouched, so it is safe to use
// from concurrently running workers.
func WithFields(ctx context.Context, fields ...interface{}) context.Context {
	return ToContext(ctx, ExtractLogger(ctx).With(fields...))
}
