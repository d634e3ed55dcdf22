package permissions

import (
	"context"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/store"
)

// filter resolves lookup against st. Unknown actions or resources surface
// as shared.ErrNotFound.
func (l Lookup) filter(ctx context.Context, st store.Store) (store.Filter, error) {
	var f store.Filter
	if l.ID != 0 {
		f.IDs = []int64{l.ID}
	}
	if l.Action != "" {
		action, err := rbac.AssertValidAction(l.Action)
		if err != nil {
			return f, err
		}
		f.All = append(f.All, store.Eq(store.ColAction, action))
	}
	if l.Resource != "" {
		res, err := rbac.ResolveResource(ctx, st.Resources(), l.Resource)
		if err != nil {
			return f, err
		}
		f.All = append(f.All, store.Eq(store.ColResourceID, res.ID))
	}
	return f, nil
}

func (l Lookup) empty() bool {
	return l.ID == 0 && l.Action == "" && l.Resource == ""
}

// withResources attaches the resource of every permission in list.
func withResources(ctx context.Context, st store.Store, list []domain.Permission) ([]domain.Permission, error) {
	if err := store.AttachResources(ctx, st, list); err != nil {
		return nil, err
	}
	return list, nil
}

func withResource(ctx context.Context, st store.Store, p domain.Permission) (domain.Permission, error) {
	list, err := withResources(ctx, st, []domain.Permission{p})
	if err != nil {
		return domain.Permission{}, err
	}
	return list[0], nil
}
