// Package permissions manages the grants of one action on one resource.
package permissions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// Service handles permission business logic.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// List returns all permissions ordered by id with their resources.
func (s *Service) List(ctx context.Context) ([]domain.Permission, error) {
	list, err := s.store.Permissions().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return withResources(ctx, s.store, list)
}

// FindByID returns the permission with id.
func (s *Service) FindByID(ctx context.Context, id int64) (domain.Permission, error) {
	p, err := s.store.Permissions().FindByID(ctx, id)
	if err != nil {
		return domain.Permission{}, err
	}
	return withResource(ctx, s.store, p)
}

// FindOne returns the first permission matching lookup.
func (s *Service) FindOne(ctx context.Context, lookup Lookup) (domain.Permission, error) {
	if lookup.empty() {
		return domain.Permission{}, errors.New("permissions: empty lookup")
	}
	f, err := lookup.filter(ctx, s.store)
	if err != nil {
		return domain.Permission{}, err
	}
	p, err := s.store.Permissions().FindOne(ctx, f)
	if err != nil {
		return domain.Permission{}, err
	}
	return withResource(ctx, s.store, p)
}

// Count returns the number of permissions.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Permissions().Count(ctx)
}

func uniquePermission(action domain.Action, resourceID, excludeID int64) rbac.Unique[domain.Permission] {
	return rbac.Unique[domain.Permission]{
		Entity:    "Permission",
		ExcludeID: excludeID,
		All: []store.Cond{
			store.Eq(store.ColAction, action),
			store.Eq(store.ColResourceID, resourceID),
		},
	}
}

// Create validates the action, resolves the resource by name and inserts
// the permission.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Permission, error) {
	var created domain.Permission
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		action, err := rbac.AssertValidAction(in.Action)
		if err != nil {
			return err
		}
		res, err := rbac.ResolveResource(ctx, tx.Resources(), in.Resource)
		if err != nil {
			return err
		}
		if err := rbac.AssertUnique(ctx, tx.Permissions(), uniquePermission(action, res.ID, 0)); err != nil {
			return err
		}
		created, err = tx.Permissions().Insert(ctx, store.Values{
			store.ColAction:      action,
			store.ColResourceID:  res.ID,
			store.ColDescription: in.Description,
		})
		if err != nil {
			return err
		}
		created.Resource = &res
		return nil
	})
	if err != nil {
		return domain.Permission{}, err
	}
	s.logger.Info("permission created",
		slog.Int64("permission_id", created.ID),
		slog.String("action", created.Action.String()),
		slog.String("resource", created.Resource.Name),
	)
	return created, nil
}

// Update patches the given fields of permission id. The (action, resource)
// pair stays unique.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (domain.Permission, error) {
	var updated domain.Permission
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		current, err := rbac.AssertExistsForUpdate(ctx, tx.Permissions(), id)
		if err != nil {
			return err
		}
		if in.empty() {
			updated, err = withResource(ctx, tx, current)
			return err
		}

		values := store.Values{}
		action, resourceID := current.Action, current.ResourceID
		if in.Action != nil {
			if action, err = rbac.AssertValidAction(*in.Action); err != nil {
				return err
			}
			values[store.ColAction] = action
		}
		if in.Resource != nil {
			res, err := rbac.ResolveResource(ctx, tx.Resources(), *in.Resource)
			if err != nil {
				return err
			}
			resourceID = res.ID
			values[store.ColResourceID] = resourceID
		}
		if in.Description != nil {
			values[store.ColDescription] = *in.Description
		}
		if in.Action != nil || in.Resource != nil {
			if err := rbac.AssertUnique(ctx, tx.Permissions(), uniquePermission(action, resourceID, id)); err != nil {
				return err
			}
		}
		patched, err := tx.Permissions().Patch(ctx, id, values)
		if err != nil {
			return err
		}
		updated, err = withResource(ctx, tx, patched)
		return err
	})
	if err != nil {
		return domain.Permission{}, err
	}
	return updated, nil
}

// Remove deletes permission id unless a role still holds it.
func (s *Service) Remove(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := rbac.AssertExistsForUpdate(ctx, tx.Permissions(), id); err != nil {
			return err
		}
		if err := rbac.AssertNoProtectiveRelation(ctx, tx.PermissionRoles(id), "Permission", "roles"); err != nil {
			return err
		}
		n, err := tx.Permissions().Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.NotFound("Permission not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("permission removed", slog.Int64("permission_id", id))
	return nil
}
