// Package store defines typed access to the RBAC tables and their join tables.
//
// Every operation may run bound to a transaction: Store.WithTx hands the
// callback a Store whose tables and relations all share the transaction.
// Implementations live in store/postgres and store/memory.
package store

import (
	"context"

	"github.com/warden-api/warden/internal/domain"
)

// Store is the entry point to the entity tables.
type Store interface {
	Users() Table[domain.User]
	Roles() Table[domain.Role]
	Permissions() Table[domain.Permission]
	Resources() Table[domain.Resource]

	// UserRoles is the roles held by userID.
	UserRoles(userID int64) Related[domain.Role]
	// RoleUsers is the users holding roleID.
	RoleUsers(roleID int64) Related[domain.User]
	// RolePermissions is the permissions granted to roleID.
	RolePermissions(roleID int64) Related[domain.Permission]
	// PermissionRoles is the roles holding permissionID.
	PermissionRoles(permissionID int64) Related[domain.Role]

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. Calling WithTx on a Store that is
	// already bound to a transaction joins it.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Table is typed access to one entity table.
type Table[T any] interface {
	// FindAll returns every row ordered by id.
	FindAll(ctx context.Context) ([]T, error)
	// FindByID returns shared.ErrNotFound when no row has id.
	FindByID(ctx context.Context, id int64) (T, error)
	// LockByID behaves like FindByID and additionally locks the row until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, id int64) (T, error)
	// FindOne returns the first row (by id) matching f or shared.ErrNotFound.
	FindOne(ctx context.Context, f Filter) (T, error)
	// Find returns every row matching f ordered by id.
	Find(ctx context.Context, f Filter) ([]T, error)
	Insert(ctx context.Context, values Values) (T, error)
	// Patch updates the given columns and returns the stored row.
	Patch(ctx context.Context, id int64, values Values) (T, error)
	// Delete returns the number of deleted rows.
	Delete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Related is a query handle on the rows related to one owner through a join table.
type Related[T any] interface {
	// IDs returns the ids of the related rows in ascending order.
	IDs(ctx context.Context) ([]int64, error)
	Find(ctx context.Context, f Filter) ([]T, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// Relate inserts join rows; ids already related are an error.
	Relate(ctx context.Context, ids ...int64) error
	// Unrelate deletes join rows; ids not related are ignored.
	Unrelate(ctx context.Context, ids ...int64) error
}
