package appctx

import "context"

// Trace holds request correlation identifiers.
type Trace struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// WithTrace stores trace identifiers.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

// GetTrace returns trace identifiers, or nil.
func GetTrace(ctx context.Context) *Trace {
	if t, ok := ctx.Value(traceKey{}).(*Trace); ok {
		return t
	}
	return nil
}
