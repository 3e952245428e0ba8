// Package ctxlog carries a go-kit logger through a context.Context,
// so deep calls (the toolchain exec, the generator) log with whatever
// the CLI configured.
package ctxlog

import (
	"context"

	"github.com/go-kit/kit/log"
	"go.opencensus.io/trace"
)

type contextKey int

const loggerKey contextKey = iota

func NewContext(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context's logger, or a nop logger if there
// is none. Inside a span the logger also carries the trace ids.
func FromContext(ctx context.Context) log.Logger {
	logger, ok := ctx.Value(loggerKey).(log.Logger)
	if !ok {
		return log.NewNopLogger()
	}

	sc := trace.FromContext(ctx).SpanContext()
	if sc.TraceID == (trace.TraceID{}) {
		return logger
	}

	return log.With(logger,
		"trace_id", sc.TraceID.String(),
		"span_id", sc.SpanID.String(),
		"trace_is_sampled", sc.IsSampled(),
	)
}
