package roles_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/roles"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
	"github.com/warden-api/warden/internal/store/memory"
)

type seeded struct {
	resource    domain.Resource
	permissions []domain.Permission
}

func seedPermissions(t *testing.T, st store.Store) seeded {
	t.Helper()
	ctx := context.Background()
	res, err := st.Resources().Insert(ctx, store.Values{store.ColName: "role"})
	require.NoError(t, err)
	out := seeded{resource: res}
	for _, action := range domain.Actions() {
		p, err := st.Permissions().Insert(ctx, store.Values{
			store.ColAction:     action,
			store.ColResourceID: res.ID,
		})
		require.NoError(t, err)
		out.permissions = append(out.permissions, p)
	}
	return out
}

func TestCreateAndUpdateRole(t *testing.T) {
	ctx := context.Background()
	svc := roles.NewService(memory.New(), nil)

	admin, err := svc.Create(ctx, roles.CreateInput{Name: " admin ", Description: "everything"})
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Name)

	_, err = svc.Create(ctx, roles.CreateInput{Name: "admin"})
	require.True(t, errors.Is(err, shared.ErrDuplicate))
	assert.Equal(t, "That name already exists", err.Error())

	auditor, err := svc.Create(ctx, roles.CreateInput{Name: "auditor"})
	require.NoError(t, err)

	name := "admin"
	_, err = svc.Update(ctx, auditor.ID, roles.UpdateInput{Name: &name})
	assert.True(t, errors.Is(err, shared.ErrDuplicate))

	desc := "read-only"
	updated, err := svc.Update(ctx, auditor.ID, roles.UpdateInput{Name: strPtr("auditor"), Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "read-only", updated.Description)

	_, err = svc.Update(ctx, 99, roles.UpdateInput{Description: &desc})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func strPtr(s string) *string { return &s }

func TestUpsertPermissionsReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed := seedPermissions(t, st)
	svc := roles.NewService(st, nil)
	role, err := svc.Create(ctx, roles.CreateInput{Name: "editor"})
	require.NoError(t, err)

	p := seed.permissions
	got, err := svc.UpsertPermissions(ctx, role.ID, []int64{p[1].ID, p[3].ID, p[4].ID})
	require.NoError(t, err)
	require.Len(t, got.Permissions, 3)
	require.NotNil(t, got.Permissions[0].Resource)
	assert.Equal(t, "role", got.Permissions[0].Resource.Name)

	got, err = svc.UpsertPermissions(ctx, role.ID, []int64{p[1].ID, p[3].ID, p[4].ID})
	require.NoError(t, err)
	assert.Len(t, got.Permissions, 3)

	got, err = svc.UpsertPermissions(ctx, role.ID, []int64{p[1].ID})
	require.NoError(t, err)
	require.Len(t, got.Permissions, 1)
	assert.Equal(t, p[1].ID, got.Permissions[0].ID)

	_, err = svc.UpsertPermissions(ctx, role.ID, []int64{p[0].ID, 1000})
	require.True(t, errors.Is(err, shared.ErrNotFound))
	found, err := svc.FindOne(ctx, roles.Lookup{ID: role.ID}, roles.QueryOptions{WithPermissions: true})
	require.NoError(t, err)
	require.Len(t, found.Permissions, 1, "failed upsert must not relate anything")

	got, err = svc.UpsertPermissions(ctx, role.ID, []int64{})
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)
}

func TestRemoveRoleBlockedByUsers(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed := seedPermissions(t, st)
	svc := roles.NewService(st, nil)
	role, err := svc.Create(ctx, roles.CreateInput{Name: "admin"})
	require.NoError(t, err)
	_, err = svc.UpsertPermissions(ctx, role.ID, []int64{seed.permissions[0].ID})
	require.NoError(t, err)

	user, err := st.Users().Insert(ctx, store.Values{
		store.ColName: "Alice Liddell", store.ColUsername: "alice", store.ColEmail: "alice@example.com",
		store.ColPasswordHash: "x", store.ColActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.UserRoles(user.ID).Relate(ctx, role.ID))

	err = svc.Remove(ctx, role.ID)
	require.True(t, errors.Is(err, shared.ErrRelationConflict))
	assert.Equal(t, "Role is still related to 1 users", err.Error())

	require.NoError(t, st.UserRoles(user.ID).Unrelate(ctx, role.ID))
	require.NoError(t, svc.Remove(ctx, role.ID))

	holders, err := st.PermissionRoles(seed.permissions[0].ID).IDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, holders)
	_, err = svc.FindByID(ctx, role.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.True(t, errors.Is(svc.Remove(ctx, role.ID), shared.ErrNotFound))
}

func TestFindOneByName(t *testing.T) {
	ctx := context.Background()
	svc := roles.NewService(memory.New(), nil)
	_, err := svc.Create(ctx, roles.CreateInput{Name: "admin"})
	require.NoError(t, err)

	role, err := svc.FindOne(ctx, roles.Lookup{Name: "admin"}, roles.QueryOptions{})
	require.NoError(t, err)
	assert.Nil(t, role.Permissions)

	_, err = svc.FindOne(ctx, roles.Lookup{Name: "ghost"}, roles.QueryOptions{})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
