package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/contextkeys"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
)

type fakeResolver struct {
	users map[string]*auth.User
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*auth.User, error) {
	if user, ok := f.users[token]; ok {
		return user, nil
	}
	return nil, auth.ErrInvalidToken
}

func newGate(users map[string]*auth.User) *AuthGate {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewAuthGate(&fakeResolver{users: users}, logger, nil)
}

func TestAuthGateRequire(t *testing.T) {
	user := &auth.User{ID: 7, Email: "reader@example.com", IsActive: true}
	gate := newGate(map[string]*auth.User{"bks_valid": user})

	t.Run("valid token reaches handler with principal bound", func(t *testing.T) {
		var seen *auth.User
		var seenToken string
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetPrincipal(r.Context())
			seenToken = contextkeys.GetToken(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/books/", nil)
		req.Header.Set("Authorization", "Token bks_valid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(7), seen.ID)
		assert.Equal(t, "bks_valid", seenToken)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/book/create/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail": "Authentication credentials were not provided."}`, rec.Body.String())
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/book/create/", nil)
		req.Header.Set("Authorization", "Token bks_unknown")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail": "Invalid token."}`, rec.Body.String())
	})

	t.Run("wrong scheme rejected", func(t *testing.T) {
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/book/create/", nil)
		req.Header.Set("Authorization", "Bearer bks_valid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		handler := gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/books/", nil)
		req.Header.Set("Authorization", "token bks_valid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthGateOptional(t *testing.T) {
	user := &auth.User{ID: 3, Email: "reader@example.com", IsActive: true}
	gate := newGate(map[string]*auth.User{"bks_valid": user})

	t.Run("anonymous request passes through", func(t *testing.T) {
		var seen *auth.User
		handler := gate.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetPrincipal(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/books/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("valid credential binds the principal", func(t *testing.T) {
		var seen *auth.User
		handler := gate.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetPrincipal(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/books/", nil)
		req.Header.Set("Authorization", "Token bks_valid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(3), seen.ID)
	})

	t.Run("bad credential still passes through anonymously", func(t *testing.T) {
		var seen *auth.User
		handler := gate.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetPrincipal(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/books/", nil)
		req.Header.Set("Authorization", "Token bks_unknown")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"well formed", "Token bks_abc", "bks_abc", true},
		{"lowercase scheme", "token bks_abc", "bks_abc", true},
		{"empty header", "", "", false},
		{"scheme only", "Token", "", false},
		{"scheme with blank value", "Token   ", "", false},
		{"bearer scheme", "Bearer bks_abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			token, ok := extractToken(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, token)
		})
	}
}
