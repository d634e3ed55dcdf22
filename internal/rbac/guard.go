// Package rbac holds the authorization core: precondition checks run before
// mutations, the upsert-graph reconciliation of join tables and the resolver
// answering whether a user may perform an action on a resource.
package rbac

import (
	"context"
	"errors"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// Unique describes a uniqueness assertion against one table.
type Unique[T any] struct {
	// Any matches rows sharing at least one of these column values.
	Any []store.Cond
	// All matches rows sharing every one of these column values (composite keys).
	All []store.Cond
	// ExcludeID skips the row being updated.
	ExcludeID int64
	// Message renders the error from the conflicting row. Optional.
	Message func(T) string
	Entity  string
}

// AssertUnique fails with shared.ErrDuplicate when a row other than
// ExcludeID matches the candidate fields.
func AssertUnique[T any](ctx context.Context, tbl store.Table[T], u Unique[T]) error {
	if len(u.Any) == 0 && len(u.All) == 0 {
		return nil
	}
	row, err := tbl.FindOne(ctx, store.Filter{All: u.All, Any: u.Any, ExcludeID: u.ExcludeID})
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	if u.Message != nil {
		return shared.Duplicate("%s", u.Message(row))
	}
	return shared.Duplicate("%s already exists", u.Entity)
}

// AssertExists returns the row with id or shared.ErrNotFound.
func AssertExists[T any](ctx context.Context, tbl store.Table[T], id int64) (T, error) {
	return tbl.FindByID(ctx, id)
}

// AssertExistsForUpdate is AssertExists that also locks the row for the
// rest of the transaction.
func AssertExistsForUpdate[T any](ctx context.Context, tbl store.Table[T], id int64) (T, error) {
	return tbl.LockByID(ctx, id)
}

// AssertNoProtectiveRelation fails with shared.ErrRelationConflict while
// any row is still related through rel.
func AssertNoProtectiveRelation[T any](ctx context.Context, rel store.Related[T], entity, relation string) error {
	n, err := rel.Count(ctx, store.Filter{})
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.RelationConflict("%s is still related to %d %s", entity, n, relation)
	}
	return nil
}

// AssertValidAction parses raw against the closed action set.
func AssertValidAction(raw string) (domain.Action, error) {
	action, ok := domain.ParseAction(raw)
	if !ok {
		return "", shared.NotFound("Invalid action")
	}
	return action, nil
}

// ResolveResource looks a resource up by name.
func ResolveResource(ctx context.Context, resources store.Table[domain.Resource], name string) (domain.Resource, error) {
	res, err := resources.FindOne(ctx, store.Where(store.Eq(store.ColName, name)))
	if errors.Is(err, shared.ErrNotFound) {
		return domain.Resource{}, shared.NotFound("Invalid resource")
	}
	return res, err
}
