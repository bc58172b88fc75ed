package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/contextkeys"
	"github.com/giabaovo/resola-code-challenge/pkg/httputil"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
	"github.com/giabaovo/resola-code-challenge/pkg/validation"
)

// TokenIssuer manages the credential side of login and logout.
// Implemented by auth.TokenAuthority.
type TokenIssuer interface {
	Issue(ctx context.Context, user *auth.User) (string, error)
	Revoke(ctx context.Context, token string) error
}

// Handlers exposes the account endpoints
type Handlers struct {
	service *Service
	tokens  TokenIssuer
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHandlers creates the account handler set. metrics may be nil.
func NewHandlers(service *Service, tokens TokenIssuer, logger *observability.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{service: service, tokens: tokens, logger: logger, metrics: metrics}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/account/register/
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if errs := validation.ValidateRegistration(req.Email, req.Password); errs.HasErrors() {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			errs := validation.FieldErrors{}
			errs.Add("email", "user with this email already exists.")
			httputil.WriteFieldErrors(w, errs)
			return
		}
		h.logger.WithError(err).Error("registration failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	httputil.WriteCreated(w, map[string]string{
		"status": fmt.Sprintf("User register with email %s successfully", user.Email),
	})
}

// Login handles POST /api/account/login/
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.countLogin("failure")
			httputil.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		h.logger.WithError(err).Error("login failed")
		httputil.WriteInternalError(w, err)
		return
	}

	token, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		h.logger.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.countLogin("success")
	h.logger.WithField("user_id", user.ID).Info("user logged in")
	httputil.WriteSuccess(w, map[string]string{
		"token": token,
	})
}

// Logout handles POST /api/account/logout/. The route sits behind the
// auth gate, so the bound token is always present. Logout is idempotent:
// a token already gone elsewhere still yields success.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.GetToken(r.Context())

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		if !errors.Is(err, auth.ErrTokenNotFound) {
			h.logger.WithError(err).Error("logout failed")
			httputil.WriteInternalError(w, err)
			return
		}
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "Successfully logged out.",
	})
}

func (h *Handlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
