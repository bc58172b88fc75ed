// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage
// discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains the authenticated *auth.User
	// Set by: middleware.AuthGate (pkg/middleware/auth.go)
	// Required by: all protected handlers, logout
	PrincipalKey Key = "principal"

	// TokenKey contains the raw bearer token string bound to the request
	// Set by: middleware.AuthGate after successful resolution
	// Required by: logout (revokes the currently bound token)
	TokenKey Key = "bearer_token"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, response headers
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: handlers that need request-scoped structured logging
	LoggerKey Key = "logger"
)

// WithPrincipal adds the authenticated user to the context
func WithPrincipal(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, user)
}

// WithToken adds the raw bearer token to the context
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetToken retrieves the raw bearer token from the context
func GetToken(ctx context.Context) string {
	if token, ok := ctx.Value(TokenKey).(string); ok {
		return token
	}
	return ""
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
