package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/platform/httpx"
	"github.com/warden-api/warden/internal/shared"
)

// Resolver answers authorization questions for the middleware.
type Resolver interface {
	CanUser(ctx context.Context, username string, action domain.Action, resource string) (bool, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver Resolver
	Logger   *slog.Logger
}

// Require resolves (resource, action) for the current principal once per
// request. A deny is 403; a resolver error (including an unknown resource)
// is 500.
func (m Middleware) Require(resource string, action domain.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			allowed, err := m.Resolver.CanUser(r.Context(), principal.Username, action, resource)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require",
						slog.String("username", principal.Username),
						slog.String("action", action.String()),
						slog.String("resource", resource),
						slog.Any("error", err),
					)
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				if m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("username", principal.Username),
						slog.String("action", action.String()),
						slog.String("resource", resource),
					)
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
