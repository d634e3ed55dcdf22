package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/warden-api/warden/internal/store"
)

type tableMeta struct {
	name    string
	entity  string
	columns []string
	// writable lists the columns accepted by Insert and Patch.
	writable store.Columns
}

var (
	usersMeta = tableMeta{
		name:     "users",
		entity:   "User",
		columns:  []string{"id", "name", "username", "email", "password_hash", "active", "created_at", "updated_at"},
		writable: store.NewColumns(store.ColName, store.ColUsername, store.ColEmail, store.ColPasswordHash, store.ColActive),
	}
	rolesMeta = tableMeta{
		name:     "roles",
		entity:   "Role",
		columns:  []string{"id", "name", "description", "created_at", "updated_at"},
		writable: store.NewColumns(store.ColName, store.ColDescription),
	}
	resourcesMeta = tableMeta{
		name:     "resources",
		entity:   "Resource",
		columns:  []string{"id", "name", "description", "created_at", "updated_at"},
		writable: store.NewColumns(store.ColName, store.ColDescription),
	}
	permissionsMeta = tableMeta{
		name:     "permissions",
		entity:   "Permission",
		columns:  []string{"id", "action", "description", "resource_id", "created_at", "updated_at"},
		writable: store.NewColumns(store.ColAction, store.ColDescription, store.ColResourceID),
	}
)

func (m tableMeta) selectList(alias string) string {
	cols := make([]string, len(m.columns))
	for i, c := range m.columns {
		if alias != "" {
			cols[i] = alias + "." + c
		} else {
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

type table[T any] struct {
	s    *Store
	meta tableMeta
}

func (t *table[T]) query(ctx context.Context, sql string, args ...any) ([]T, error) {
	var out []T
	err := t.s.run(ctx, func(q dbtx) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	if err != nil {
		return nil, translate(err, t.meta.entity)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (t *table[T]) one(ctx context.Context, sql string, args ...any) (T, error) {
	var out T
	err := t.s.run(ctx, func(q dbtx) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
		return err
	})
	return out, translate(err, t.meta.entity)
}

func (t *table[T]) FindAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY id", t.meta.selectList(""), t.meta.name))
}

func (t *table[T]) FindByID(ctx context.Context, id int64) (T, error) {
	return t.one(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", t.meta.selectList(""), t.meta.name), id)
}

func (t *table[T]) LockByID(ctx context.Context, id int64) (T, error) {
	return t.one(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", t.meta.selectList(""), t.meta.name), id)
}

func (t *table[T]) FindOne(ctx context.Context, f store.Filter) (T, error) {
	if err := t.meta.writable.CheckFilter(f); err != nil {
		var zero T
		return zero, err
	}
	var b whereBuilder
	where := b.build("", f)
	return t.one(ctx, fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id LIMIT 1", t.meta.selectList(""), t.meta.name, where), b.args...)
}

func (t *table[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	if err := t.meta.writable.CheckFilter(f); err != nil {
		return nil, err
	}
	var b whereBuilder
	where := b.build("", f)
	return t.query(ctx, fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id", t.meta.selectList(""), t.meta.name, where), b.args...)
}

func (t *table[T]) Insert(ctx context.Context, values store.Values) (T, error) {
	if err := t.meta.writable.CheckValues(values); err != nil {
		var zero T
		return zero, err
	}
	now := t.s.now()
	cols := sortedColumns(values)
	args := make([]any, 0, len(cols)+2)
	placeholders := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		args = append(args, values[c])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)-1), fmt.Sprintf("$%d", len(args)))

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.meta.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), t.meta.selectList(""))
	return t.one(ctx, sql, args...)
}

func (t *table[T]) Patch(ctx context.Context, id int64, values store.Values) (T, error) {
	if err := t.meta.writable.CheckValues(values); err != nil {
		var zero T
		return zero, err
	}
	cols := sortedColumns(values)
	args := make([]any, 0, len(cols)+2)
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		args = append(args, values[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	args = append(args, t.s.now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		t.meta.name, strings.Join(sets, ", "), len(args), t.meta.selectList(""))
	return t.one(ctx, sql, args...)
}

func (t *table[T]) Delete(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := t.s.run(ctx, func(q dbtx) error {
		tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.meta.name), id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, translate(err, t.meta.entity)
}

func (t *table[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.s.run(ctx, func(q dbtx) error {
		return q.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", t.meta.name)).Scan(&n)
	})
	return n, translate(err, t.meta.entity)
}
