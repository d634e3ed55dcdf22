package users

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/store"
)

// normalizeEmail lower-cases email so uniqueness is case-insensitive.
// A Caser is not safe for concurrent use, so one is built per call.
func normalizeEmail(email string) string {
	return cases.Lower(language.Und).String(email)
}

func (l Lookup) filter() store.Filter {
	var f store.Filter
	if l.ID != 0 {
		f.IDs = []int64{l.ID}
	}
	if l.Username != "" {
		f.All = append(f.All, store.Eq(store.ColUsername, l.Username))
	}
	if l.Email != "" {
		f.All = append(f.All, store.Eq(store.ColEmail, normalizeEmail(l.Email)))
	}
	return f
}

func (l Lookup) empty() bool {
	return l.ID == 0 && l.Username == "" && l.Email == ""
}

// loadRoles populates u.Roles from the join table.
func loadRoles(ctx context.Context, st store.Store, u *domain.User) error {
	roles, err := st.UserRoles(u.ID).Find(ctx, store.Filter{})
	if err != nil {
		return err
	}
	u.Roles = roles
	return nil
}

// strip removes fields never exposed by reads.
func strip(u domain.User) domain.User {
	u.PasswordHash = ""
	return u
}

func stripAll(list []domain.User) []domain.User {
	for i := range list {
		list[i].PasswordHash = ""
	}
	return list
}
