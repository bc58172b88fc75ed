// Package middleware provides the HTTP authentication gate: it extracts
// the bearer credential from the Authorization header, resolves it to a
// user, and binds the principal into the request context for handlers
// downstream.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/contextkeys"
	"github.com/giabaovo/resola-code-challenge/pkg/httputil"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
)

// authScheme is the Authorization header scheme, e.g.
// "Authorization: Token bks_..."
const authScheme = "Token"

// TokenResolver maps a presented credential to its user. Implemented by
// auth.TokenAuthority.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*auth.User, error)
}

// AuthGate guards routes that require an authenticated principal
type AuthGate struct {
	resolver TokenResolver
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthGate creates an authentication gate backed by the given
// resolver. metrics may be nil.
func NewAuthGate(resolver TokenResolver, logger *observability.Logger, metrics *observability.Metrics) *AuthGate {
	return &AuthGate{resolver: resolver, logger: logger, metrics: metrics}
}

// Require wraps a handler so it only runs for authenticated requests.
// Requests without a credential, or with one that does not resolve, are
// rejected with 401 and never reach the handler.
func (g *AuthGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(r)
		if !ok {
			httputil.WriteAuthRequired(w, "Authentication credentials were not provided.")
			return
		}

		user, err := g.resolver.Resolve(r.Context(), token)
		if err != nil {
			g.logger.WithField("path", r.URL.Path).WithError(err).Debug("token resolution failed")
			if g.metrics != nil {
				g.metrics.TokenResolvesTotal.WithLabelValues("invalid").Inc()
			}
			httputil.WriteAuthRequired(w, "Invalid token.")
			return
		}
		if g.metrics != nil {
			g.metrics.TokenResolvesTotal.WithLabelValues("ok").Inc()
		}

		ctx := contextkeys.WithPrincipal(r.Context(), user)
		ctx = contextkeys.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional resolves a credential when one is present but lets anonymous
// requests through. Used on public routes so logging still sees the
// caller when there is one.
func (g *AuthGate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := extractToken(r); ok {
			if user, err := g.resolver.Resolve(r.Context(), token); err == nil {
				ctx := contextkeys.WithPrincipal(r.Context(), user)
				ctx = contextkeys.WithToken(ctx, token)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the credential out of the Authorization header.
// The scheme comparison is case-insensitive; the token itself is not.
func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// GetPrincipal returns the authenticated user bound by the gate, or nil
// for anonymous requests.
func GetPrincipal(ctx context.Context) *auth.User {
	user, ok := ctx.Value(contextkeys.PrincipalKey).(*auth.User)
	if !ok {
		return nil
	}
	return user
}
