package memory

import (
	"context"
	"sort"

	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

type table[T any] struct {
	s *Store
	e entity[T]
}

func (e entity[T]) matches(row T, f store.Filter) bool {
	for _, c := range f.All {
		if e.get(row, c.Column) != normalize(c.Value) {
			return false
		}
	}
	if len(f.Any) > 0 {
		hit := false
		for _, c := range f.Any {
			if e.get(row, c.Column) == normalize(c.Value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.IDs != nil {
		id := e.id(row)
		hit := false
		for _, candidate := range f.IDs {
			if candidate == id {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return f.ExcludeID == 0 || e.id(row) != f.ExcludeID
}

// sorted returns the rows accepted by keep ordered by id.
func (e entity[T]) sorted(st *state, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, row := range e.rows(st) {
		if keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return e.id(out[i]) < e.id(out[j]) })
	return out
}

func (e entity[T]) notFound() error {
	return shared.NotFound("%s not found", e.name)
}

// checkUnique rejects row when another row shares one of its unique groups.
func (e entity[T]) checkUnique(st *state, row T) error {
	for _, group := range e.unique {
		for _, other := range e.rows(st) {
			if e.id(other) == e.id(row) {
				continue
			}
			same := true
			for _, col := range group {
				if e.get(other, col) != e.get(row, col) {
					same = false
					break
				}
			}
			if same {
				return shared.Duplicate("%s already exists", e.name)
			}
		}
	}
	return nil
}

func (t *table[T]) FindAll(ctx context.Context) ([]T, error) {
	var out []T
	err := t.s.read(ctx, func(st *state) error {
		out = t.e.sorted(st, func(T) bool { return true })
		return nil
	})
	return out, err
}

func (t *table[T]) FindByID(ctx context.Context, id int64) (T, error) {
	var out T
	err := t.s.read(ctx, func(st *state) error {
		row, ok := t.e.rows(st)[id]
		if !ok {
			return t.e.notFound()
		}
		out = row
		return nil
	})
	return out, err
}

// LockByID is FindByID: transactions are already serialised.
func (t *table[T]) LockByID(ctx context.Context, id int64) (T, error) {
	return t.FindByID(ctx, id)
}

func (t *table[T]) FindOne(ctx context.Context, f store.Filter) (T, error) {
	var zero T
	rows, err := t.Find(ctx, f)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, t.e.notFound()
	}
	return rows[0], nil
}

func (t *table[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	if err := t.e.columns.CheckFilter(f); err != nil {
		return nil, err
	}
	var out []T
	err := t.s.read(ctx, func(st *state) error {
		out = t.e.sorted(st, func(row T) bool { return t.e.matches(row, f) })
		return nil
	})
	return out, err
}

func (t *table[T]) Insert(ctx context.Context, values store.Values) (T, error) {
	var out T
	if err := t.e.columns.CheckValues(values); err != nil {
		return out, err
	}
	err := t.s.write(ctx, func(st *state) error {
		var row T
		for col, v := range values {
			if err := t.e.set(&row, col, v); err != nil {
				return err
			}
		}
		if err := t.e.checkUnique(st, row); err != nil {
			return err
		}
		if t.e.check != nil {
			if err := t.e.check(st, row); err != nil {
				return err
			}
		}
		now := t.s.now()
		t.e.stamp(&row, st.nextID(t.e.table), now)
		t.e.rows(st)[t.e.id(row)] = row
		out = row
		return nil
	})
	return out, err
}

func (t *table[T]) Patch(ctx context.Context, id int64, values store.Values) (T, error) {
	var out T
	if err := t.e.columns.CheckValues(values); err != nil {
		return out, err
	}
	err := t.s.write(ctx, func(st *state) error {
		row, ok := t.e.rows(st)[id]
		if !ok {
			return t.e.notFound()
		}
		for col, v := range values {
			if err := t.e.set(&row, col, v); err != nil {
				return err
			}
		}
		if err := t.e.checkUnique(st, row); err != nil {
			return err
		}
		if t.e.check != nil {
			if err := t.e.check(st, row); err != nil {
				return err
			}
		}
		t.e.touch(&row, t.s.now())
		t.e.rows(st)[id] = row
		out = row
		return nil
	})
	return out, err
}

func (t *table[T]) Delete(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := t.s.write(ctx, func(st *state) error {
		if _, ok := t.e.rows(st)[id]; !ok {
			return nil
		}
		if t.e.referenced != nil && t.e.referenced(st, id) {
			return shared.RelationConflict("%s is related to other records", t.e.name)
		}
		delete(t.e.rows(st), id)
		n = 1
		return nil
	})
	return n, err
}

func (t *table[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.s.read(ctx, func(st *state) error {
		n = int64(len(t.e.rows(st)))
		return nil
	})
	return n, err
}
