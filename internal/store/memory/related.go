package memory

import (
	"context"
	"sort"

	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

type related[T any] struct {
	s           *Store
	target      entity[T]
	ownerTable  string
	ownerID     int64
	ownerFirst  bool
	join        func(*state) map[pair]struct{}
	ownerExists func(*state, int64) bool
}

func (r *related[T]) key(targetID int64) pair {
	if r.ownerFirst {
		return pair{owner: r.ownerID, target: targetID}
	}
	return pair{owner: targetID, target: r.ownerID}
}

func (r *related[T]) ids(st *state) []int64 {
	out := make([]int64, 0)
	for k := range r.join(st) {
		switch {
		case r.ownerFirst && k.owner == r.ownerID:
			out = append(out, k.target)
		case !r.ownerFirst && k.target == r.ownerID:
			out = append(out, k.owner)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *related[T]) rows(st *state, f store.Filter) []T {
	linked := make(map[int64]struct{})
	for _, id := range r.ids(st) {
		linked[id] = struct{}{}
	}
	return r.target.sorted(st, func(row T) bool {
		if _, ok := linked[r.target.id(row)]; !ok {
			return false
		}
		return r.target.matches(row, f)
	})
}

func (r *related[T]) IDs(ctx context.Context) ([]int64, error) {
	var out []int64
	err := r.s.read(ctx, func(st *state) error {
		out = r.ids(st)
		return nil
	})
	return out, err
}

func (r *related[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	if err := r.target.columns.CheckFilter(f); err != nil {
		return nil, err
	}
	var out []T
	err := r.s.read(ctx, func(st *state) error {
		out = r.rows(st, f)
		return nil
	})
	return out, err
}

func (r *related[T]) Count(ctx context.Context, f store.Filter) (int64, error) {
	if err := r.target.columns.CheckFilter(f); err != nil {
		return 0, err
	}
	var n int64
	err := r.s.read(ctx, func(st *state) error {
		n = int64(len(r.rows(st, f)))
		return nil
	})
	return n, err
}

func (r *related[T]) Relate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.s.write(ctx, func(st *state) error {
		if !r.ownerExists(st, r.ownerID) {
			return shared.RelationConflict("%s row %d does not exist", r.ownerTable, r.ownerID)
		}
		join := r.join(st)
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := r.target.rows(st)[id]; !ok {
				return shared.RelationConflict("%s %d does not exist", r.target.name, id)
			}
			if _, ok := join[r.key(id)]; ok {
				return shared.Duplicate("%s already exists", r.target.name)
			}
			if _, ok := seen[id]; ok {
				return shared.Duplicate("%s already exists", r.target.name)
			}
			seen[id] = struct{}{}
		}
		for _, id := range ids {
			join[r.key(id)] = struct{}{}
		}
		return nil
	})
}

func (r *related[T]) Unrelate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.s.write(ctx, func(st *state) error {
		join := r.join(st)
		for _, id := range ids {
			delete(join, r.key(id))
		}
		return nil
	})
}
