package reqctx

import "context"

type ctxKey string

const keyCorrelationID ctxKey = "correlation_id"

// WithCorrelationID stores the request correlation id used in logs and error payloads.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, keyCorrelationID, id)
}

// CorrelationID returns the correlation id if present.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(keyCorrelationID).(string)
	return v
}
