package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/warden-api/warden/internal/store"
)

const (
	usersRoles       = "users_roles"
	rolesPermissions = "roles_permissions"
)

// related reads target rows joined to ownerID through join.
type related[T any] struct {
	s       *Store
	target  tableMeta
	join    string
	owner   string
	other   string
	ownerID int64
}

func (r *related[T]) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.s.run(ctx, func(q dbtx) error {
		rows, err := q.Query(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY %s", r.other, r.join, r.owner, r.other), r.ownerID)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, translate(err, r.target.entity)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (r *related[T]) from(b *whereBuilder, f store.Filter) string {
	owner := fmt.Sprintf("j.%s = %s", r.owner, b.arg(r.ownerID))
	return fmt.Sprintf("FROM %s t JOIN %s j ON j.%s = t.id%s", r.target.name, r.join, r.other, b.build("t", f, owner))
}

func (r *related[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	if err := r.target.writable.CheckFilter(f); err != nil {
		return nil, err
	}
	var b whereBuilder
	sql := fmt.Sprintf("SELECT %s %s ORDER BY t.id", r.target.selectList("t"), r.from(&b, f))
	var out []T
	err := r.s.run(ctx, func(q dbtx) error {
		rows, err := q.Query(ctx, sql, b.args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	if err != nil {
		return nil, translate(err, r.target.entity)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *related[T]) Count(ctx context.Context, f store.Filter) (int64, error) {
	if err := r.target.writable.CheckFilter(f); err != nil {
		return 0, err
	}
	var b whereBuilder
	sql := "SELECT COUNT(*) " + r.from(&b, f)
	var n int64
	err := r.s.run(ctx, func(q dbtx) error {
		return q.QueryRow(ctx, sql, b.args...).Scan(&n)
	})
	return n, translate(err, r.target.entity)
}

func (r *related[T]) Relate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s, %s) SELECT $1, unnest($2::bigint[])", r.join, r.owner, r.other)
	err := r.s.run(ctx, func(q dbtx) error {
		_, err := q.Exec(ctx, sql, r.ownerID, ids)
		return err
	})
	return translate(err, r.target.entity)
}

func (r *related[T]) Unrelate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = ANY($2)", r.join, r.owner, r.other)
	err := r.s.run(ctx, func(q dbtx) error {
		_, err := q.Exec(ctx, sql, r.ownerID, ids)
		return err
	})
	return translate(err, r.target.entity)
}
