package rbac

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// DecisionRecorder receives every authorization outcome.
type DecisionRecorder interface {
	ObserveDecision(resource, action, outcome string)
}

// Authorizer resolves user -> roles -> permissions -> resource against the
// current persisted state. Nothing is cached.
type Authorizer struct {
	store    store.Store
	logger   *slog.Logger
	recorder DecisionRecorder
}

// NewAuthorizer constructs an Authorizer. recorder may be nil.
func NewAuthorizer(st store.Store, logger *slog.Logger, recorder DecisionRecorder) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{store: st, logger: logger, recorder: recorder}
}

// CanUser reports whether any role held by username grants action on
// resource. Unknown and inactive users are denied without error. An error
// from any role check is returned even if another role granted access.
func (a *Authorizer) CanUser(ctx context.Context, username string, action domain.Action, resource string) (bool, error) {
	allowed, err := a.canUser(ctx, username, action, resource)
	a.record(resource, action, allowed, err)
	if err != nil {
		return false, err
	}
	a.logger.Debug("authorization resolved",
		slog.String("username", username),
		slog.String("action", action.String()),
		slog.String("resource", resource),
		slog.Bool("allowed", allowed),
	)
	return allowed, nil
}

func (a *Authorizer) canUser(ctx context.Context, username string, action domain.Action, resource string) (bool, error) {
	user, err := a.store.Users().FindOne(ctx, store.Where(store.Eq(store.ColUsername, username)))
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !user.Active {
		return false, nil
	}

	roles, err := a.store.UserRoles(user.ID).Find(ctx, store.Filter{})
	if err != nil {
		return false, err
	}
	if len(roles) == 0 {
		return false, nil
	}

	var granted atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for _, role := range roles {
		g.Go(func() error {
			ok, err := a.CanRole(gctx, role.Name, action, resource)
			if err != nil {
				return err
			}
			if ok {
				granted.Store(true)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return granted.Load(), nil
}

// CanRole reports whether role roleName holds a permission for action on
// resource. A missing role or resource is shared.ErrNotFound, not a deny.
func (a *Authorizer) CanRole(ctx context.Context, roleName string, action domain.Action, resource string) (bool, error) {
	if !action.Valid() {
		return false, shared.NotFound("Invalid action")
	}

	var (
		role domain.Role
		res  domain.Resource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		role, err = a.store.Roles().FindOne(gctx, store.Where(store.Eq(store.ColName, roleName)))
		return err
	})
	g.Go(func() error {
		var err error
		res, err = a.store.Resources().FindOne(gctx, store.Where(store.Eq(store.ColName, resource)))
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	n, err := a.store.RolePermissions(role.ID).Count(ctx, store.Where(
		store.Eq(store.ColAction, string(action)),
		store.Eq(store.ColResourceID, res.ID),
	))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (a *Authorizer) record(resource string, action domain.Action, allowed bool, err error) {
	if a.recorder == nil {
		return
	}
	outcome := "deny"
	switch {
	case err != nil:
		outcome = "error"
	case allowed:
		outcome = "allow"
	}
	a.recorder.ObserveDecision(resource, action.String(), outcome)
}
