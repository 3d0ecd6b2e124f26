package analyses

import "context"

type requestIDKey struct{}

// WithRequestID attaches a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func logFields(ctx context.Context, ownerID string, an analysisRef) map[string]any {
	return map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"owner_id":    ownerID,
		"analysis_id": an.id,
		"kind":        string(an.kind),
	}
}
