package auth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/platform/httpx"
	"github.com/warden-api/warden/internal/shared"
)

// TokenHeader carries the issued token on a successful login.
const TokenHeader = "Server-Authorization"

// Authenticator verifies credentials and issues a token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (domain.Token, error)
}

// FailureRecorder counts failed logins.
type FailureRecorder interface {
	ObserveLoginFailure()
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   Authenticator
	throttle  *LoginThrottle
	failures  FailureRecorder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. throttle and failures may be nil.
func NewHandler(logger *slog.Logger, service Authenticator, throttle *LoginThrottle, failures FailureRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		throttle:  throttle,
		failures:  failures,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=60"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	subject := clientIP(r) + ":" + req.Username
	if h.throttle != nil {
		allowed, retry, err := h.throttle.Allow(r.Context(), subject)
		if err != nil {
			// fail open
			h.logger.Warn("login throttle unavailable", slog.Any("error", err))
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			h.recordFailure()
			httpx.RespondError(w, httpx.ErrTooManyRequests)
			return
		}
	}

	token, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.recordFailure()
			h.logger.Info("login failed", slog.String("username", req.Username))
		} else {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if h.throttle != nil {
		if err := h.throttle.Reset(r.Context(), subject); err != nil {
			h.logger.Warn("reset login throttle", slog.Any("error", err))
		}
	}

	w.Header().Set(TokenHeader, token.Value)
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) recordFailure() {
	if h.failures != nil {
		h.failures.ObserveLoginFailure()
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
