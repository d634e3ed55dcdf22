package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/permissions"
	"github.com/warden-api/warden/internal/roles"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
	"github.com/warden-api/warden/internal/users"
)

// AdminRole is the role seeded with every permission.
const AdminRole = "admin"

// SeedOptions describes the admin account created by Seed.
type SeedOptions struct {
	Username string
	Name     string
	Email    string
	Password string
}

// SeedReport counts the rows created by one Seed call.
type SeedReport struct {
	Resources   int `json:"resources"`
	Permissions int `json:"permissions"`
	Roles       int `json:"roles"`
	Users       int `json:"users"`
}

var seedResources = []struct{ name, description string }{
	{domain.ResourceUser, "User accounts"},
	{domain.ResourceRole, "Roles granted to users"},
	{domain.ResourcePermission, "Permissions granted to roles"},
}

// Seed creates the default resources, every action on each of them, an admin
// role holding all permissions and an active admin user. Rows that already
// exist are kept, so Seed can run repeatedly.
func (rt *Runtime) Seed(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	var report SeedReport
	if opts.Password == "" {
		return report, errors.New("seed: admin password is required")
	}

	for _, res := range seedResources {
		_, err := rt.Store.Resources().FindOne(ctx, store.Where(store.Eq(store.ColName, res.name)))
		if err == nil {
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return report, err
		}
		if _, err := rt.Store.Resources().Insert(ctx, store.Values{
			store.ColName:        res.name,
			store.ColDescription: res.description,
		}); err != nil {
			return report, fmt.Errorf("seed resource %s: %w", res.name, err)
		}
		report.Resources++
	}

	var permissionIDs []int64
	for _, res := range seedResources {
		for _, action := range domain.Actions() {
			lookup := permissions.Lookup{Action: action.String(), Resource: res.name}
			p, err := rt.Permissions.FindOne(ctx, lookup)
			if errors.Is(err, shared.ErrNotFound) {
				p, err = rt.Permissions.Create(ctx, permissions.CreateInput{
					Action:      action.String(),
					Resource:    res.name,
					Description: fmt.Sprintf("Allows to %s %ss", action, res.name),
				})
				if err == nil {
					report.Permissions++
				}
			}
			if err != nil {
				return report, fmt.Errorf("seed permission %s:%s: %w", action, res.name, err)
			}
			permissionIDs = append(permissionIDs, p.ID)
		}
	}

	admin, err := rt.Roles.FindOne(ctx, roles.Lookup{Name: AdminRole}, roles.QueryOptions{})
	if errors.Is(err, shared.ErrNotFound) {
		admin, err = rt.Roles.Create(ctx, roles.CreateInput{Name: AdminRole, Description: "Full access"})
		if err == nil {
			report.Roles++
		}
	}
	if err != nil {
		return report, fmt.Errorf("seed admin role: %w", err)
	}
	if _, err := rt.Roles.UpsertPermissions(ctx, admin.ID, permissionIDs); err != nil {
		return report, fmt.Errorf("seed admin permissions: %w", err)
	}

	user, err := rt.Users.FindOne(ctx, users.Lookup{Username: opts.Username}, users.QueryOptions{WithRoles: true})
	if errors.Is(err, shared.ErrNotFound) {
		active := true
		user, err = rt.Users.Create(ctx, users.CreateInput{
			Name:     opts.Name,
			Username: opts.Username,
			Email:    opts.Email,
			Password: opts.Password,
			Active:   &active,
		})
		if err == nil {
			report.Users++
		}
	}
	if err != nil {
		return report, fmt.Errorf("seed admin user: %w", err)
	}
	roleIDs := []int64{admin.ID}
	for _, r := range user.Roles {
		roleIDs = append(roleIDs, r.ID)
	}
	if _, err := rt.Users.UpsertRoles(ctx, user.ID, roleIDs); err != nil {
		return report, fmt.Errorf("seed admin roles: %w", err)
	}

	rt.Logger.Info("seed complete",
		slog.Int("resources", report.Resources),
		slog.Int("permissions", report.Permissions),
		slog.Int("roles", report.Roles),
		slog.Int("users", report.Users),
	)
	return report, nil
}
