package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/store"
	"github.com/warden-api/warden/internal/store/memory"
)

// fixture seeds a memory store with resources, permissions, roles and users.
type fixture struct {
	t   *testing.T
	ctx context.Context
	st  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), st: memory.New()}
}

func (f *fixture) resource(name string) domain.Resource {
	f.t.Helper()
	r, err := f.st.Resources().Insert(f.ctx, store.Values{store.ColName: name})
	require.NoError(f.t, err)
	return r
}

func (f *fixture) permission(action domain.Action, resourceID int64) domain.Permission {
	f.t.Helper()
	p, err := f.st.Permissions().Insert(f.ctx, store.Values{
		store.ColAction:     string(action),
		store.ColResourceID: resourceID,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) role(name string, permissionIDs ...int64) domain.Role {
	f.t.Helper()
	r, err := f.st.Roles().Insert(f.ctx, store.Values{store.ColName: name})
	require.NoError(f.t, err)
	require.NoError(f.t, f.st.RolePermissions(r.ID).Relate(f.ctx, permissionIDs...))
	return r
}

func (f *fixture) user(username string, active bool, roleIDs ...int64) domain.User {
	f.t.Helper()
	u, err := f.st.Users().Insert(f.ctx, store.Values{
		store.ColName:         "User " + username,
		store.ColUsername:     username,
		store.ColEmail:        username + "@example.com",
		store.ColPasswordHash: "hash",
		store.ColActive:       active,
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.st.UserRoles(u.ID).Relate(f.ctx, roleIDs...))
	return u
}
