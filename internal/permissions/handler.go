package permissions

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

// Handler manages permission endpoints.
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

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourcePermission, domain.ActionList))
		r.Get("/", h.listPermissions)
		r.Get("/count", h.countPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourcePermission, domain.ActionRead))
		r.Get("/{id}", h.getPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourcePermission, domain.ActionCreate))
		r.Post("/", h.createPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourcePermission, domain.ActionUpdate))
		r.Put("/{id}", h.updatePermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(domain.ResourcePermission, domain.ActionDelete))
		r.Delete("/{id}", h.deletePermission)
	})
}

// Action values are checked by the service so an unknown action reports
// "Invalid action" rather than a validation failure.
type createPermissionRequest struct {
	Action      string `json:"action" validate:"required"`
	Resource    string `json:"resource" validate:"required,min=3,max=32"`
	Description string `json:"description" validate:"required,max=2048"`
}

type updatePermissionRequest struct {
	Action      *string `json:"action" validate:"omitempty,min=1"`
	Resource    *string `json:"resource" validate:"omitempty,min=3,max=32"`
	Description *string `json:"description" validate:"omitempty,max=2048"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) countPermissions(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Count(r.Context())
	if err != nil {
		h.fail(w, "count permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.fail(w, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), CreateInput{
		Action:      req.Action,
		Resource:    req.Resource,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, "create permission", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/permission/%d", p.ID))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updatePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, UpdateInput{
		Action:      req.Action,
		Resource:    req.Resource,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		h.fail(w, "delete permission", err)
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
