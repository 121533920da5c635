// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here for values that are set
// by middleware but consumed by services. The package stays free of net/http
// so services can import it without pulling in transport code.
//
// Usage in services (read values):
//
//	accountID := requestcontext.AccountID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithAccountID(ctx, accountID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	accountIDKey   struct{}
	roleKey        struct{}
	tokenIDKey     struct{}
	clientTypeKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyAccountID   = accountIDKey{}
	ContextKeyRole        = roleKey{}
	ContextKeyTokenID     = tokenIDKey{}
	ContextKeyClientType  = clientTypeKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// AccountID retrieves the authenticated account ID from the context.
func AccountID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyAccountID).(string); ok {
		return v
	}
	return ""
}

// WithAccountID injects an account ID into the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, ContextKeyAccountID, accountID)
}

// Role retrieves the authenticated account role from the context.
func Role(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRole).(string); ok {
		return v
	}
	return ""
}

// WithRole injects an account role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyRole, role)
}

// TokenID retrieves the session credential's jti from the context. Set by the
// session middleware so logout can revoke the exact credential it saw.
func TokenID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyTokenID).(string); ok {
		return v
	}
	return ""
}

// WithTokenID injects a credential jti into the context.
func WithTokenID(ctx context.Context, jti string) context.Context {
	return context.WithValue(ctx, ContextKeyTokenID, jti)
}

// ClientType retrieves the detected client type from the context.
func ClientType(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyClientType).(string); ok {
		return v
	}
	return ""
}

// WithClientType injects a client type into the context.
func WithClientType(ctx context.Context, clientType string) context.Context {
	return context.WithValue(ctx, ContextKeyClientType, clientType)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from the context. Falls back to
// time.Now() for non-HTTP contexts like workers and tests that don't set it.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
