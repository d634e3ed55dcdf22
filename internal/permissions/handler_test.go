package permissions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/permissions"
	"github.com/warden-api/warden/internal/platform/httpx"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
	"github.com/warden-api/warden/internal/store/memory"
)

type allowList map[domain.Action]bool

func (a allowList) CanUser(_ context.Context, _ string, action domain.Action, resource string) (bool, error) {
	return resource == domain.ResourcePermission && a[action], nil
}

var allowEverything = allowList{
	domain.ActionCreate: true, domain.ActionRead: true, domain.ActionList: true,
	domain.ActionUpdate: true, domain.ActionDelete: true,
}

func newRouter(t *testing.T, allowed allowList) (http.Handler, *memory.Store) {
	t.Helper()
	svc, st := setup(t)
	h := permissions.NewHandler(nil, svc, rbac.Middleware{Resolver: allowed})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{ID: 1, Username: "alice"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/api/permission", h.MountRoutes)
	return r, st
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func problemDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem.Detail
}

func TestPermissionRoutes(t *testing.T) {
	router, _ := newRouter(t, allowEverything)

	rec := do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user","description":"read users"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/permission/1", rec.Header().Get("Location"))
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "read", created["action"])
	assert.NotContains(t, created, "resourceId")
	assert.Equal(t, "user", created["resource"].(map[string]any)["name"])

	rec = do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user","description":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Permission already exists", problemDetail(t, rec))

	rec = do(router, http.MethodPost, "/api/permission", `{"action":"fly","resource":"user","description":"fly users"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid action", problemDetail(t, rec))

	rec = do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"nope","description":"read nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid resource", problemDetail(t, rec))

	rec = do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/permission/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var count map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.EqualValues(t, 1, count["count"])

	rec = do(router, http.MethodGet, "/api/permission/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(router, http.MethodGet, "/api/permission/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermissionUpdateRevalidates(t *testing.T) {
	router, _ := newRouter(t, allowEverything)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user","description":"read users"}`).Code)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/permission", `{"action":"list","resource":"user","description":"list users"}`).Code)

	rec := do(router, http.MethodPut, "/api/permission/2", `{"action":"read"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPut, "/api/permission/2", `{"action":"fly"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid action", problemDetail(t, rec))

	rec = do(router, http.MethodPut, "/api/permission/2", `{"resource":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid resource", problemDetail(t, rec))

	rec = do(router, http.MethodPut, "/api/permission/2", `{"action":"read","resource":"role","description":"read roles"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Permission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, domain.ActionRead, updated.Action)
	require.NotNil(t, updated.Resource)
	assert.Equal(t, "role", updated.Resource.Name)

	rec = do(router, http.MethodPut, "/api/permission/7", `{"description":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermissionDeleteHeldByRole(t *testing.T) {
	router, st := newRouter(t, allowEverything)
	ctx := context.Background()
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user","description":"read users"}`).Code)

	role, err := st.Roles().Insert(ctx, store.Values{store.ColName: "auditor"})
	require.NoError(t, err)
	require.NoError(t, st.RolePermissions(role.ID).Relate(ctx, 1))

	rec := do(router, http.MethodDelete, "/api/permission/1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Permission is still related to 1 roles", problemDetail(t, rec))

	require.NoError(t, st.RolePermissions(role.ID).Unrelate(ctx, 1))
	rec = do(router, http.MethodDelete, "/api/permission/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(router, http.MethodDelete, "/api/permission/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermissionRoutesForbidden(t *testing.T) {
	router, _ := newRouter(t, allowList{domain.ActionList: true})

	rec := do(router, http.MethodGet, "/api/permission", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/permission", `{"action":"read","resource":"user","description":"read users"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(router, http.MethodDelete, "/api/permission/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
