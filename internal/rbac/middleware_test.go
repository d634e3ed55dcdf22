package rbac_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
)

type stubResolver struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubResolver) CanUser(ctx context.Context, username string, action domain.Action, resource string) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func serveRequire(t *testing.T, resolver *stubResolver, withPrincipal bool) *httptest.ResponseRecorder {
	t.Helper()
	mw := rbac.Middleware{Resolver: resolver}
	handler := mw.Require(domain.ResourceRole, domain.ActionRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/role", nil)
	if withPrincipal {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: 1, Username: "alice"}))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequireStatuses(t *testing.T) {
	cases := []struct {
		name      string
		resolver  *stubResolver
		principal bool
		want      int
		calls     int
	}{
		{"allowed", &stubResolver{allowed: true}, true, http.StatusNoContent, 1},
		{"denied", &stubResolver{}, true, http.StatusForbidden, 1},
		{"resolver error", &stubResolver{err: shared.NotFound("Resource not found")}, true, http.StatusInternalServerError, 1},
		{"generic error", &stubResolver{err: errors.New("boom")}, true, http.StatusInternalServerError, 1},
		{"no principal", &stubResolver{allowed: true}, false, http.StatusUnauthorized, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveRequire(t, tc.resolver, tc.principal)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if tc.resolver.calls != tc.calls {
				t.Fatalf("expected %d resolver calls, got %d", tc.calls, tc.resolver.calls)
			}
		})
	}
}
