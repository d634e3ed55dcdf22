package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/platform/httpx"
	"github.com/warden-api/warden/internal/shared"
)

// UserFinder resolves the subject of a token.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (domain.User, error)
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	Tokens *Tokens
	Users  UserFinder
	Logger *slog.Logger
}

// RequireToken rejects requests without a valid bearer token whose user
// still exists, and stores the principal in the request context.
func (m Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		user, err := m.Users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("auth lookup user", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{ID: user.ID, Username: user.Username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
