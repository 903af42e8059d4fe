// Package correlation carries the request correlation id used to join
// access logs, engine logs and spans of one metering or billing request.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// Header carries a caller supplied correlation id.
const Header = "X-Correlation-Id"

const maxIDLength = 64

type ctxKey struct{}

func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ContextWithCorrelationID stores id after sanitizing it. Ids that are
// empty after sanitizing leave ctx untouched.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	id = Sanitize(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// EnsureCorrelationID keeps an existing id, then falls back to the active
// trace id and finally to a fresh ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := ExtractCorrelationID(ctx); id != "" {
		return ctx, id
	}
	var id string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		id = sc.TraceID().String()
	} else {
		id = ulid.Make().String()
	}
	return context.WithValue(ctx, ctxKey{}, id), id
}

// Sanitize drops characters outside [A-Za-z0-9._:-] and truncates the
// result so header values cannot inject into log lines.
func Sanitize(id string) string {
	id = strings.TrimSpace(id)
	var b strings.Builder
	for _, r := range id {
		if b.Len() >= maxIDLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ':':
			b.WriteRune(r)
		}
	}
	return b.String()
}
