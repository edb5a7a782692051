package sepay

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader carries the identifier shared by all attempts of one call.
const RequestIDHeader = "X-Request-Id"

type RequestContext struct {
	// Identifier sent as X-Request-Id and attached to every log line of the
	// call. Generated when empty.
	//
	// Example: 0b9e4c1e-6f0a-4c43-9d8a-0f3f4b2d7a11
	RequestID string
	// Optional Idempotency-Key header value.
	//
	// Example: void-INV-1001
	IdempotencyKey string
}

type requestContextKey struct{}

// WithRequestContext stores call metadata used by [Transport].
func WithRequestContext(ctx context.Context, requestCtx *RequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, requestCtx)
}

// WithRequestID is shorthand for a [RequestContext] carrying only an ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return WithRequestContext(ctx, &RequestContext{RequestID: id})
}

// RequestContextFromContext extracts metadata previously stored in the context.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	if requestCtx, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return requestCtx
	}
	return nil
}

// resolveRequestContext returns a copy with a request ID filled in.
func resolveRequestContext(ctx context.Context) RequestContext {
	var resolved RequestContext
	if requestCtx := RequestContextFromContext(ctx); requestCtx != nil {
		resolved = *requestCtx
	}
	resolved.RequestID = strings.TrimSpace(resolved.RequestID)
	resolved.IdempotencyKey = strings.TrimSpace(resolved.IdempotencyKey)
	if resolved.RequestID == "" {
		resolved.RequestID = uuid.NewString()
	}
	return resolved
}
