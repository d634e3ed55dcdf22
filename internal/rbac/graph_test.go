package rbac_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

func loadPermissions(ctx context.Context, st store.Store, r *domain.Role) error {
	perms, err := st.RolePermissions(r.ID).Find(ctx, store.Filter{})
	if err != nil {
		return err
	}
	r.Permissions = perms
	return nil
}

func permissionIDs(r domain.Role) []int64 {
	ids := make([]int64, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestReconcile(t *testing.T) {
	d := rbac.Reconcile([]int64{1, 2, 3}, []int64{3, 4, 4, 2})
	assert.Equal(t, []int64{4}, d.Added)
	assert.Equal(t, []int64{1}, d.Removed)
	assert.Equal(t, []int64{2, 3}, d.Kept)
	assert.False(t, d.Empty())

	assert.True(t, rbac.Reconcile([]int64{5}, []int64{5}).Empty())

	cleared := rbac.Reconcile([]int64{7, 8}, nil)
	assert.Equal(t, []int64{7, 8}, cleared.Removed)
	assert.Empty(t, cleared.Added)
}

func TestUpsertGraphReplaceAndIdempotence(t *testing.T) {
	f := newFixture(t)
	res := f.resource("role")
	var perms []domain.Permission
	for _, a := range domain.Actions() {
		perms = append(perms, f.permission(a, res.ID))
	}
	role := f.role("editor")
	rel := rbac.RolePermissions(loadPermissions)
	target := []int64{perms[1].ID, perms[3].ID, perms[4].ID}

	got, diff, err := rbac.UpsertGraph(f.ctx, f.st, nil, rel, role.ID, target)
	require.NoError(t, err)
	assert.Equal(t, target, permissionIDs(got))
	assert.Equal(t, target, diff.Added)

	got, diff, err = rbac.UpsertGraph(f.ctx, f.st, nil, rel, role.ID, target)
	require.NoError(t, err)
	assert.Equal(t, target, permissionIDs(got))
	assert.True(t, diff.Empty())
	assert.Equal(t, target, diff.Kept)

	got, diff, err = rbac.UpsertGraph(f.ctx, f.st, nil, rel, role.ID, []int64{perms[1].ID, perms[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{perms[1].ID}, permissionIDs(got))
	assert.Equal(t, []int64{perms[3].ID, perms[4].ID}, diff.Removed)

	got, _, err = rbac.UpsertGraph(f.ctx, f.st, nil, rel, role.ID, []int64{})
	require.NoError(t, err)
	assert.Empty(t, got.Permissions)
}

func TestUpsertGraphIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	res := f.resource("user")
	read := f.permission(domain.ActionRead, res.ID)
	list := f.permission(domain.ActionList, res.ID)
	role := f.role("viewer", read.ID)

	_, _, err := rbac.UpsertGraph(f.ctx, f.st, nil, rbac.RolePermissions(loadPermissions), role.ID, []int64{list.ID, 999})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Contains(t, err.Error(), "999")

	ids, err := f.st.RolePermissions(role.ID).IDs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{read.ID}, ids)
}

func TestUpsertGraphUnknownOwner(t *testing.T) {
	f := newFixture(t)
	_, _, err := rbac.UpsertGraph(f.ctx, f.st, nil, rbac.UserRoles(nil), 42, []int64{1})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestUpsertGraphUserRoles(t *testing.T) {
	f := newFixture(t)
	admin := f.role("admin")
	auditor := f.role("auditor")
	u := f.user("alice", true, admin.ID)

	_, diff, err := rbac.UpsertGraph(f.ctx, f.st, nil, rbac.UserRoles(nil), u.ID, []int64{auditor.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{auditor.ID}, diff.Added)
	assert.Equal(t, []int64{admin.ID}, diff.Removed)

	ids, err := f.st.UserRoles(u.ID).IDs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{auditor.ID}, ids)
}
