package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warden-api/warden/internal/store"
)

// whereBuilder renders a store.Filter as a WHERE clause with positional args.
// Column names come from the checked column sets, never from callers.
type whereBuilder struct {
	args []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) col(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}

// build returns "" or " WHERE ..." and may be combined with existing
// conditions through and.
func (b *whereBuilder) build(alias string, f store.Filter, and ...string) string {
	clauses := append([]string(nil), and...)
	for _, c := range f.All {
		clauses = append(clauses, fmt.Sprintf("%s = %s", b.col(alias, c.Column), b.arg(c.Value)))
	}
	if len(f.Any) > 0 {
		ors := make([]string, 0, len(f.Any))
		for _, c := range f.Any {
			ors = append(ors, fmt.Sprintf("%s = %s", b.col(alias, c.Column), b.arg(c.Value)))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if f.IDs != nil {
		clauses = append(clauses, fmt.Sprintf("%s = ANY(%s)", b.col(alias, store.ColID), b.arg(f.IDs)))
	}
	if f.ExcludeID != 0 {
		clauses = append(clauses, fmt.Sprintf("%s <> %s", b.col(alias, store.ColID), b.arg(f.ExcludeID)))
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func sortedColumns(values store.Values) []string {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
