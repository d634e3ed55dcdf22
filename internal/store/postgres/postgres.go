// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/platform/db"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store is a pgx backed store.Store.
type Store struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	tx             pgx.Tx
	now            func() time.Time
}

// New constructs a Store on pool. acquireTimeout bounds how long an operation
// waits for a free connection.
func New(pool *pgxpool.Pool, acquireTimeout time.Duration) *Store {
	return &Store{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

// WithTx runs fn in a transaction, joining the current one if s is bound.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	err := db.WithTx(ctx, s.pool, s.acquireTimeout, func(tx pgx.Tx) error {
		bound := &Store{pool: s.pool, acquireTimeout: s.acquireTimeout, tx: tx, now: s.now}
		return fn(ctx, bound)
	})
	return translate(err, "record")
}

// run hands fn the transaction when bound, or a pooled connection otherwise.
func (s *Store) run(ctx context.Context, fn func(q dbtx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	conn, err := db.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}

func (s *Store) Users() store.Table[domain.User] {
	return &table[domain.User]{s: s, meta: usersMeta}
}

func (s *Store) Roles() store.Table[domain.Role] {
	return &table[domain.Role]{s: s, meta: rolesMeta}
}

func (s *Store) Permissions() store.Table[domain.Permission] {
	return &table[domain.Permission]{s: s, meta: permissionsMeta}
}

func (s *Store) Resources() store.Table[domain.Resource] {
	return &table[domain.Resource]{s: s, meta: resourcesMeta}
}

func (s *Store) UserRoles(userID int64) store.Related[domain.Role] {
	return &related[domain.Role]{s: s, target: rolesMeta, join: usersRoles, owner: "user_id", other: "role_id", ownerID: userID}
}

func (s *Store) RoleUsers(roleID int64) store.Related[domain.User] {
	return &related[domain.User]{s: s, target: usersMeta, join: usersRoles, owner: "role_id", other: "user_id", ownerID: roleID}
}

func (s *Store) RolePermissions(roleID int64) store.Related[domain.Permission] {
	return &related[domain.Permission]{s: s, target: permissionsMeta, join: rolesPermissions, owner: "role_id", other: "permission_id", ownerID: roleID}
}

func (s *Store) PermissionRoles(permissionID int64) store.Related[domain.Role] {
	return &related[domain.Role]{s: s, target: rolesMeta, join: rolesPermissions, owner: "permission_id", other: "role_id", ownerID: permissionID}
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto the shared error kinds.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound("%s not found", entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &shared.Error{Kind: shared.ErrDuplicate, Message: fmt.Sprintf("%s already exists", entity)}
		case foreignKeyViolation:
			return &shared.Error{Kind: shared.ErrRelationConflict, Message: fmt.Sprintf("%s is related to other records", entity)}
		}
	}
	if errors.Is(err, db.ErrPoolExhausted) {
		return fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}
	return fmt.Errorf("store/postgres: %s: %w", entity, err)
}
