package rbac

import (
	"context"
	"log/slog"
	"sort"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// Diff is the change needed to turn the current membership into the target.
type Diff struct {
	Added   []int64
	Removed []int64
	Kept    []int64
}

// Empty reports whether applying d changes nothing.
func (d Diff) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// Reconcile computes the diff between current and target id sets. Duplicates
// are ignored and every slice is returned in ascending order.
func Reconcile(current, target []int64) Diff {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(target))
	for _, id := range target {
		want[id] = struct{}{}
	}

	d := Diff{Added: []int64{}, Removed: []int64{}, Kept: []int64{}}
	for id := range want {
		if _, ok := have[id]; ok {
			d.Kept = append(d.Kept, id)
		} else {
			d.Added = append(d.Added, id)
		}
	}
	for id := range have {
		if _, ok := want[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	for _, ids := range [][]int64{d.Added, d.Removed, d.Kept} {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return d
}

// Relation describes a many-to-many relation owned by O with members T.
type Relation[O, T any] struct {
	// Name is the member entity, used in errors and logs.
	Name     string
	Owner    func(store.Store) store.Table[O]
	Targets  func(store.Store) store.Table[T]
	Members  func(st store.Store, ownerID int64) store.Related[T]
	TargetID func(T) int64
	// Load populates the owner's eager relation after the update.
	Load func(ctx context.Context, st store.Store, owner *O) error
}

// UpsertGraph replaces the full membership of ownerID with targetIDs in one
// transaction. Members present in both sets are left untouched. Unknown owner
// or target ids fail the whole operation with shared.ErrNotFound.
func UpsertGraph[O, T any](ctx context.Context, st store.Store, logger *slog.Logger, rel Relation[O, T], ownerID int64, targetIDs []int64) (O, Diff, error) {
	var (
		owner O
		diff  Diff
	)
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		owner, err = AssertExistsForUpdate(ctx, rel.Owner(tx), ownerID)
		if err != nil {
			return err
		}

		target := store.Dedupe(targetIDs)
		if len(target) > 0 {
			found, err := rel.Targets(tx).Find(ctx, store.Filter{IDs: target})
			if err != nil {
				return err
			}
			if len(found) != len(target) {
				return missingTarget(rel, found, target)
			}
		}

		members := rel.Members(tx, ownerID)
		current, err := members.IDs(ctx)
		if err != nil {
			return err
		}
		diff = Reconcile(current, target)
		if diff.Empty() {
			return loadOwner(ctx, tx, rel, &owner)
		}
		if err := members.Unrelate(ctx, diff.Removed...); err != nil {
			return err
		}
		if err := members.Relate(ctx, diff.Added...); err != nil {
			return err
		}
		return loadOwner(ctx, tx, rel, &owner)
	})
	if err != nil {
		var zero O
		return zero, Diff{}, err
	}
	switch {
	case logger == nil:
	case diff.Empty():
		logger.Debug("relation unchanged", slog.String("relation", rel.Name), slog.Int64("owner_id", ownerID))
	default:
		logger.Info("relation reconciled",
			slog.String("relation", rel.Name),
			slog.Int64("owner_id", ownerID),
			slog.Any("added", diff.Added),
			slog.Any("removed", diff.Removed),
			slog.Int("kept", len(diff.Kept)),
		)
	}
	return owner, diff, nil
}

func loadOwner[O, T any](ctx context.Context, st store.Store, rel Relation[O, T], owner *O) error {
	if rel.Load == nil {
		return nil
	}
	return rel.Load(ctx, st, owner)
}

func missingTarget[O, T any](rel Relation[O, T], found []T, target []int64) error {
	seen := make(map[int64]struct{}, len(found))
	for _, row := range found {
		seen[rel.TargetID(row)] = struct{}{}
	}
	for _, id := range target {
		if _, ok := seen[id]; !ok {
			return shared.NotFound("%s %d not found", rel.Name, id)
		}
	}
	return shared.NotFound("%s not found", rel.Name)
}

// UserRoles is the relation reconciled by the user service.
func UserRoles(load func(ctx context.Context, st store.Store, u *domain.User) error) Relation[domain.User, domain.Role] {
	return Relation[domain.User, domain.Role]{
		Name:     "Role",
		Owner:    func(st store.Store) store.Table[domain.User] { return st.Users() },
		Targets:  func(st store.Store) store.Table[domain.Role] { return st.Roles() },
		Members:  func(st store.Store, id int64) store.Related[domain.Role] { return st.UserRoles(id) },
		TargetID: func(r domain.Role) int64 { return r.ID },
		Load:     load,
	}
}

// RolePermissions is the relation reconciled by the role service.
func RolePermissions(load func(ctx context.Context, st store.Store, r *domain.Role) error) Relation[domain.Role, domain.Permission] {
	return Relation[domain.Role, domain.Permission]{
		Name:     "Permission",
		Owner:    func(st store.Store) store.Table[domain.Role] { return st.Roles() },
		Targets:  func(st store.Store) store.Table[domain.Permission] { return st.Permissions() },
		Members:  func(st store.Store, id int64) store.Related[domain.Permission] { return st.RolePermissions(id) },
		TargetID: func(p domain.Permission) int64 { return p.ID },
		Load:     load,
	}
}
