package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// Service handles role business logic.
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

// List returns all roles ordered by id.
func (s *Service) List(ctx context.Context) ([]domain.Role, error) {
	return s.store.Roles().FindAll(ctx)
}

// FindByID returns the role with id.
func (s *Service) FindByID(ctx context.Context, id int64) (domain.Role, error) {
	return s.store.Roles().FindByID(ctx, id)
}

// FindOne returns the first role matching lookup.
func (s *Service) FindOne(ctx context.Context, lookup Lookup, opts QueryOptions) (domain.Role, error) {
	if lookup.empty() {
		return domain.Role{}, errors.New("roles: empty lookup")
	}
	role, err := s.store.Roles().FindOne(ctx, lookup.filter())
	if err != nil {
		return domain.Role{}, err
	}
	if opts.WithPermissions {
		if err := loadPermissions(ctx, s.store, &role); err != nil {
			return domain.Role{}, err
		}
	}
	return role, nil
}

// Count returns the number of roles.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Roles().Count(ctx)
}

func uniqueRole(name string, excludeID int64) rbac.Unique[domain.Role] {
	return rbac.Unique[domain.Role]{
		Entity:    "Role",
		ExcludeID: excludeID,
		All:       []store.Cond{store.Eq(store.ColName, name)},
		Message:   func(domain.Role) string { return "That name already exists" },
	}
}

// Create validates the name is free and inserts the role.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Role, error) {
	name := strings.TrimSpace(in.Name)
	var created domain.Role
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := rbac.AssertUnique(ctx, tx.Roles(), uniqueRole(name, 0)); err != nil {
			return err
		}
		var err error
		created, err = tx.Roles().Insert(ctx, store.Values{
			store.ColName:        name,
			store.ColDescription: in.Description,
		})
		return err
	})
	if err != nil {
		return domain.Role{}, err
	}
	s.logger.Info("role created", slog.Int64("role_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// Update patches the given fields of role id.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (domain.Role, error) {
	var updated domain.Role
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		current, err := rbac.AssertExistsForUpdate(ctx, tx.Roles(), id)
		if err != nil {
			return err
		}
		if in.empty() {
			updated = current
			return nil
		}
		values := store.Values{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if err := rbac.AssertUnique(ctx, tx.Roles(), uniqueRole(name, id)); err != nil {
				return err
			}
			values[store.ColName] = name
		}
		if in.Description != nil {
			values[store.ColDescription] = *in.Description
		}
		updated, err = tx.Roles().Patch(ctx, id, values)
		return err
	})
	if err != nil {
		return domain.Role{}, err
	}
	return updated, nil
}

// Remove deletes role id. Roles still held by users cannot be removed; the
// role's permission grants are dropped with it.
func (s *Service) Remove(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := rbac.AssertExistsForUpdate(ctx, tx.Roles(), id); err != nil {
			return err
		}
		if err := rbac.AssertNoProtectiveRelation(ctx, tx.RoleUsers(id), "Role", "users"); err != nil {
			return err
		}
		perms := tx.RolePermissions(id)
		granted, err := perms.IDs(ctx)
		if err != nil {
			return err
		}
		if err := perms.Unrelate(ctx, granted...); err != nil {
			return err
		}
		n, err := tx.Roles().Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.NotFound("Role not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("role removed", slog.Int64("role_id", id))
	return nil
}

// UpsertPermissions replaces the permissions granted to role id.
func (s *Service) UpsertPermissions(ctx context.Context, id int64, permissionIDs []int64) (domain.Role, error) {
	role, _, err := rbac.UpsertGraph(ctx, s.store, s.logger, rbac.RolePermissions(loadPermissions), id, permissionIDs)
	return role, err
}
