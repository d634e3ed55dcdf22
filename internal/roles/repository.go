package roles

import (
	"context"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/store"
)

func (l Lookup) filter() store.Filter {
	var f store.Filter
	if l.ID != 0 {
		f.IDs = []int64{l.ID}
	}
	if l.Name != "" {
		f.All = append(f.All, store.Eq(store.ColName, l.Name))
	}
	return f
}

func (l Lookup) empty() bool {
	return l.ID == 0 && l.Name == ""
}

// loadPermissions populates r.Permissions, each with its resource attached.
func loadPermissions(ctx context.Context, st store.Store, r *domain.Role) error {
	perms, err := st.RolePermissions(r.ID).Find(ctx, store.Filter{})
	if err != nil {
		return err
	}
	if err := store.AttachResources(ctx, st, perms); err != nil {
		return err
	}
	r.Permissions = perms
	return nil
}
