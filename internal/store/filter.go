package store

import "fmt"

// Column names shared by the store implementations.
const (
	ColID           = "id"
	ColName         = "name"
	ColUsername     = "username"
	ColEmail        = "email"
	ColPasswordHash = "password_hash"
	ColActive       = "active"
	ColDescription  = "description"
	ColAction       = "action"
	ColResourceID   = "resource_id"
)

// Cond is an equality condition on a column.
type Cond struct {
	Column string
	Value  any
}

// Eq builds a Cond.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// Filter selects rows. A row matches when every All condition holds, at least
// one Any condition holds (if any are given), its id is in IDs (if given) and
// its id differs from ExcludeID (if non-zero).
type Filter struct {
	All       []Cond
	Any       []Cond
	IDs       []int64
	ExcludeID int64
}

// Where is shorthand for a Filter with All conditions.
func Where(conds ...Cond) Filter {
	return Filter{All: conds}
}

// Values are column assignments for Insert and Patch.
type Values map[string]any

// Columns is the set of filterable and writable columns of a table.
type Columns map[string]struct{}

// NewColumns builds a Columns set.
func NewColumns(names ...string) Columns {
	set := make(Columns, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// CheckFilter rejects filters on columns outside the set.
func (c Columns) CheckFilter(f Filter) error {
	for _, group := range [][]Cond{f.All, f.Any} {
		for _, cond := range group {
			if _, ok := c[cond.Column]; !ok && cond.Column != ColID {
				return fmt.Errorf("store: unknown filter column %q", cond.Column)
			}
		}
	}
	return nil
}

// CheckValues rejects writes to columns outside the set.
func (c Columns) CheckValues(v Values) error {
	for col := range v {
		if _, ok := c[col]; !ok {
			return fmt.Errorf("store: unknown column %q", col)
		}
	}
	return nil
}

// Dedupe returns ids without repeats, keeping first-seen order.
func Dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
