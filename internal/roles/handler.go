package roles

import (
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

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceRole, domain.ActionList))
		r.Get("/", h.listRoles)
		r.Get("/count", h.countRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceRole, domain.ActionRead))
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceRole, domain.ActionCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceRole, domain.ActionUpdate))
		r.Put("/{id}", h.updateRole)
		r.Put("/{id}/permissions", h.upsertPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourceRole, domain.ActionDelete))
		r.Delete("/{id}", h.deleteRole)
	})
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=32"`
	Description string `json:"description" validate:"max=1024"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=32"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

type upsertPermissionsRequest struct {
	Permissions httpx.IDList `json:"permissions" validate:"required,unique,dive,gt=0"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) countRoles(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.fail(w, "count roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	opts := QueryOptions{WithPermissions: r.URL.Query().Get("withPermissions") == "true"}
	role, err := h.service.FindOne(r.Context(), Lookup{ID: id}, opts)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	role, err := h.service.Create(r.Context(), CreateInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/role/%d", role.ID))
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	role, err := h.service.Update(r.Context(), id, UpdateInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) upsertPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req upsertPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	role, err := h.service.UpsertPermissions(r.Context(), id, req.Permissions)
	if err != nil {
		h.fail(w, "upsert role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete role", err)
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
