// Package context carries request-scoped identifiers used by logs, traces
// and metrics.
package context

import (
	stdcontext "context"
	"strings"
)

type key int

const (
	requestIDKey key = iota
	tenantIDKey
	actorTypeKey
	actorIDKey
)

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	return stringFrom(ctx, requestIDKey)
}

func WithTenantID(ctx stdcontext.Context, tenantID string) stdcontext.Context {
	return withString(ctx, tenantIDKey, tenantID)
}

func TenantIDFromContext(ctx stdcontext.Context) string {
	return stringFrom(ctx, tenantIDKey)
}

func WithActor(ctx stdcontext.Context, actorType, actorID string) stdcontext.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx stdcontext.Context) (string, string) {
	return stringFrom(ctx, actorTypeKey), stringFrom(ctx, actorIDKey)
}

func withString(ctx stdcontext.Context, k key, value string) stdcontext.Context {
	value = strings.TrimSpace(value)
	if ctx == nil || value == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, k, value)
}

func stringFrom(ctx stdcontext.Context, k key) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(k).(string)
	return value
}
