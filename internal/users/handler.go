package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/platform/httpx"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
)

// Notifier is told about new accounts. Failures are logged only.
type Notifier interface {
	UserCreated(ctx context.Context, user domain.User) error
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	notifier  Notifier
	validator *validator.Validate
}

// NewHandler builds Handler instance. notifier may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, notifier Notifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, notifier: notifier, validator: httpx.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceUser, domain.ActionList))
		r.Get("/", h.listUsers)
		r.Get("/count", h.countUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceUser, domain.ActionRead))
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceUser, domain.ActionCreate))
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceUser, domain.ActionUpdate))
		r.Put("/{id}", h.updateUser)
		r.Put("/{id}/roles", h.upsertRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceUser, domain.ActionDelete))
		r.Delete("/{id}", h.deleteUser)
	})
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Name     string `json:"name" validate:"required,min=6,max=64"`
	Email    string `json:"email" validate:"required,email,max=64"`
	Password string `json:"password" validate:"required,min=8,max=60"`
	Active   *bool  `json:"active"`
}

type updateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32"`
	Name     *string `json:"name" validate:"omitempty,min=6,max=64"`
	Email    *string `json:"email" validate:"omitempty,email,max=64"`
	Password *string `json:"password" validate:"omitempty,min=8,max=60"`
	Active   *bool   `json:"active"`
}

type upsertRolesRequest struct {
	Roles httpx.IDList `json:"roles" validate:"required,unique,dive,gt=0"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) countUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.fail(w, "count users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.FindOne(r.Context(), Lookup{ID: id}, QueryOptions{WithRoles: r.URL.Query().Get("withRoles") == "true"})
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), CreateInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Active:   req.Active,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	if h.notifier != nil {
		if err := h.notifier.UserCreated(context.WithoutCancel(r.Context()), user); err != nil {
			h.logger.Warn("notify user created", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}
	w.Header().Set("Location", fmt.Sprintf("/api/user/%d", user.ID))
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Active:   req.Active,
	})
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) upsertRoles(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req upsertRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	user, err := h.service.UpsertRoles(r.Context(), id, req.Roles)
	if err != nil {
		h.fail(w, "upsert user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		h.logger.Info(op+" rejected", slog.String("reason", domainErr.Error()))
	} else {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
