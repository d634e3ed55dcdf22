package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/users"
)

type allowAll struct{}

func (allowAll) CanUser(context.Context, string, domain.Action, string) (bool, error) {
	return true, nil
}

type recordingNotifier struct {
	created []domain.User
	err     error
}

func (n *recordingNotifier) UserCreated(_ context.Context, u domain.User) error {
	n.created = append(n.created, u)
	return n.err
}

func newUserRouter(t *testing.T, notifier users.Notifier) http.Handler {
	t.Helper()
	svc, _, _ := newService(t)
	h := users.NewHandler(nil, svc, rbac.Middleware{Resolver: allowAll{}}, notifier)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{ID: 1, Username: "root"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/api/user", h.MountRoutes)
	return r
}

func send(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUserRoutes(t *testing.T) {
	notifier := &recordingNotifier{}
	router := newUserRouter(t, notifier)

	rec := send(router, http.MethodPost, "/api/user",
		`{"username":"alice","name":"Alice Liddell","email":"alice@example.com","password":"wonderland"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/user/1", rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), "wonderland")
	assert.NotContains(t, rec.Body.String(), "hashed")
	require.Len(t, notifier.created, 1)
	assert.Equal(t, "alice", notifier.created[0].Username)

	rec = send(router, http.MethodPost, "/api/user",
		`{"username":"alice","name":"Alice Again","email":"other@example.com","password":"wonderland"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "That username already exists")

	rec = send(router, http.MethodPost, "/api/user", `{"username":"bob","name":"Bob","email":"nope","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(router, http.MethodPut, "/api/user/1", `{"active":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.True(t, user.Active)

	rec = send(router, http.MethodPut, "/api/user/1/roles", `{"roles":[3]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(router, http.MethodGet, "/api/user/1?withRoles=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(router, http.MethodGet, "/api/user/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(router, http.MethodDelete, "/api/user/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = send(router, http.MethodDelete, "/api/user/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUserSurvivesNotifierFailure(t *testing.T) {
	router := newUserRouter(t, &recordingNotifier{err: errors.New("queue down")})

	rec := send(router, http.MethodPost, "/api/user",
		`{"username":"carol","name":"Carol Danvers","email":"carol@example.com","password":"higher-further"}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
