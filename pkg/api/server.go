// Package api assembles the HTTP surface: routes, the authentication
// gate policy, and the middleware chain.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/giabaovo/resola-code-challenge/pkg/accounts"
	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/httputil"
	"github.com/giabaovo/resola-code-challenge/pkg/middleware"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
)

// Options configures the API server assembly. Metrics may be nil;
// tracing wraps the handler with otelhttp when enabled.
type Options struct {
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	Gate          *middleware.AuthGate
	Accounts      *accounts.Handlers
	Books         *books.Handlers
	MaxBodyBytes  int64
	EnableTracing bool
}

// Server is the assembled HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
}

// NewServer builds the router and middleware chain
func NewServer(opts Options) *Server {
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}
	s.routes()

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(opts.Logger),
		httputil.LoggingMiddleware(opts.Logger),
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
	)

	var handler http.Handler = chain(s.router)
	if opts.EnableTracing {
		handler = otelhttp.NewHandler(handler, "bookstore-api")
	}
	s.handler = handler

	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routes declares the HTTP surface. Listing and fetching books is
// public; everything that mutates state, plus logout, sits behind the
// authentication gate.
func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Accounts
	s.public("/api/account/register/", http.HandlerFunc(s.opts.Accounts.Register), http.MethodPost)
	s.public("/api/account/login/", http.HandlerFunc(s.opts.Accounts.Login), http.MethodPost)
	s.gated("/api/account/logout/", http.HandlerFunc(s.opts.Accounts.Logout), http.MethodPost)

	// Catalog
	s.public("/api/books/", http.HandlerFunc(s.opts.Books.List), http.MethodGet)
	s.public("/api/book/{id}/", http.HandlerFunc(s.opts.Books.Get), http.MethodGet)
	s.gated("/api/book/create/", http.HandlerFunc(s.opts.Books.Create), http.MethodPost)
	s.gated("/api/book/update/{id}/", http.HandlerFunc(s.opts.Books.Update), http.MethodPut)
	s.gated("/api/book/delete/{id}/", http.HandlerFunc(s.opts.Books.Delete), http.MethodDelete)
}

// public registers a route open to anonymous callers. The gate still
// resolves a credential when one is sent so the principal is available.
func (s *Server) public(path string, handler http.Handler, method string) {
	s.router.Handle(path, s.instrument(path, s.opts.Gate.Optional(handler))).Methods(method)
}

// gated registers a route that requires an authenticated principal
func (s *Server) gated(path string, handler http.Handler, method string) {
	s.router.Handle(path, s.instrument(path, s.opts.Gate.Require(handler))).Methods(method)
}

// instrument wraps a route with per-template request metrics
func (s *Server) instrument(path string, handler http.Handler) http.Handler {
	if s.opts.Metrics == nil {
		return handler
	}
	return s.opts.Metrics.Middleware(path, handler)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFoundError(w, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
