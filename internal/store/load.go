package store

import (
	"context"

	"github.com/warden-api/warden/internal/domain"
)

// AttachResources sets the Resource of every permission in perms, resolving
// all of them in one query. Permissions whose resource is gone keep a nil
// Resource.
func AttachResources(ctx context.Context, st Store, perms []domain.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ResourceID)
	}
	resources, err := st.Resources().Find(ctx, Filter{IDs: Dedupe(ids)})
	if err != nil {
		return err
	}
	byID := make(map[int64]domain.Resource, len(resources))
	for _, res := range resources {
		byID[res.ID] = res
	}
	for i := range perms {
		if res, ok := byID[perms[i].ResourceID]; ok {
			perms[i].Resource = &res
		}
	}
	return nil
}
