package memory

import (
	"fmt"
	"time"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// entity describes how one table is stored and constrained.
type entity[T any] struct {
	table   string
	name    string
	columns store.Columns
	rows    func(*state) map[int64]T
	id      func(T) int64
	get     func(T, string) any
	set     func(*T, string, any) error
	stamp   func(*T, int64, time.Time)
	touch   func(*T, time.Time)
	// unique lists column groups that must be unique across rows.
	unique [][]string
	// referenced reports whether another row still points at id.
	referenced func(*state, int64) bool
	// check validates foreign keys of a row about to be written.
	check func(*state, T) error
}

var users = entity[domain.User]{
	table:   "users",
	name:    "User",
	columns: store.NewColumns(store.ColName, store.ColUsername, store.ColEmail, store.ColPasswordHash, store.ColActive),
	rows:    func(st *state) map[int64]domain.User { return st.users },
	id:      func(u domain.User) int64 { return u.ID },
	get: func(u domain.User, col string) any {
		switch col {
		case store.ColID:
			return u.ID
		case store.ColName:
			return u.Name
		case store.ColUsername:
			return u.Username
		case store.ColEmail:
			return u.Email
		case store.ColPasswordHash:
			return u.PasswordHash
		case store.ColActive:
			return u.Active
		}
		return nil
	},
	set: func(u *domain.User, col string, v any) error {
		var err error
		switch col {
		case store.ColName:
			u.Name, err = asString(col, v)
		case store.ColUsername:
			u.Username, err = asString(col, v)
		case store.ColEmail:
			u.Email, err = asString(col, v)
		case store.ColPasswordHash:
			u.PasswordHash, err = asString(col, v)
		case store.ColActive:
			u.Active, err = asBool(col, v)
		}
		return err
	},
	stamp: func(u *domain.User, id int64, now time.Time) {
		u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
	},
	touch: func(u *domain.User, now time.Time) { u.UpdatedAt = now },
	unique: [][]string{{store.ColUsername}, {store.ColEmail}},
	referenced: func(st *state, id int64) bool {
		for k := range st.usersRoles {
			if k.owner == id {
				return true
			}
		}
		return false
	},
}

var roles = entity[domain.Role]{
	table:   "roles",
	name:    "Role",
	columns: store.NewColumns(store.ColName, store.ColDescription),
	rows:    func(st *state) map[int64]domain.Role { return st.roles },
	id:      func(r domain.Role) int64 { return r.ID },
	get: func(r domain.Role, col string) any {
		switch col {
		case store.ColID:
			return r.ID
		case store.ColName:
			return r.Name
		case store.ColDescription:
			return r.Description
		}
		return nil
	},
	set: func(r *domain.Role, col string, v any) error {
		var err error
		switch col {
		case store.ColName:
			r.Name, err = asString(col, v)
		case store.ColDescription:
			r.Description, err = asString(col, v)
		}
		return err
	},
	stamp: func(r *domain.Role, id int64, now time.Time) {
		r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
	},
	touch: func(r *domain.Role, now time.Time) { r.UpdatedAt = now },
	unique: [][]string{{store.ColName}},
	referenced: func(st *state, id int64) bool {
		for k := range st.usersRoles {
			if k.target == id {
				return true
			}
		}
		for k := range st.rolesPermissions {
			if k.owner == id {
				return true
			}
		}
		return false
	},
}

var resources = entity[domain.Resource]{
	table:   "resources",
	name:    "Resource",
	columns: store.NewColumns(store.ColName, store.ColDescription),
	rows:    func(st *state) map[int64]domain.Resource { return st.resources },
	id:      func(r domain.Resource) int64 { return r.ID },
	get: func(r domain.Resource, col string) any {
		switch col {
		case store.ColID:
			return r.ID
		case store.ColName:
			return r.Name
		case store.ColDescription:
			return r.Description
		}
		return nil
	},
	set: func(r *domain.Resource, col string, v any) error {
		var err error
		switch col {
		case store.ColName:
			r.Name, err = asString(col, v)
		case store.ColDescription:
			r.Description, err = asString(col, v)
		}
		return err
	},
	stamp: func(r *domain.Resource, id int64, now time.Time) {
		r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
	},
	touch: func(r *domain.Resource, now time.Time) { r.UpdatedAt = now },
	unique: [][]string{{store.ColName}},
	referenced: func(st *state, id int64) bool {
		for _, p := range st.permissions {
			if p.ResourceID == id {
				return true
			}
		}
		return false
	},
}

var permissions = entity[domain.Permission]{
	table:   "permissions",
	name:    "Permission",
	columns: store.NewColumns(store.ColAction, store.ColDescription, store.ColResourceID),
	rows:    func(st *state) map[int64]domain.Permission { return st.permissions },
	id:      func(p domain.Permission) int64 { return p.ID },
	get: func(p domain.Permission, col string) any {
		switch col {
		case store.ColID:
			return p.ID
		case store.ColAction:
			return string(p.Action)
		case store.ColDescription:
			return p.Description
		case store.ColResourceID:
			return p.ResourceID
		}
		return nil
	},
	set: func(p *domain.Permission, col string, v any) error {
		switch col {
		case store.ColAction:
			s, err := asString(col, v)
			if err != nil {
				return err
			}
			p.Action = domain.Action(s)
		case store.ColDescription:
			s, err := asString(col, v)
			if err != nil {
				return err
			}
			p.Description = s
		case store.ColResourceID:
			id, err := asInt64(col, v)
			if err != nil {
				return err
			}
			p.ResourceID = id
		}
		return nil
	},
	stamp: func(p *domain.Permission, id int64, now time.Time) {
		p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	},
	touch: func(p *domain.Permission, now time.Time) { p.UpdatedAt = now },
	unique: [][]string{{store.ColAction, store.ColResourceID}},
	referenced: func(st *state, id int64) bool {
		for k := range st.rolesPermissions {
			if k.target == id {
				return true
			}
		}
		return false
	},
	check: func(st *state, p domain.Permission) error {
		if !p.Action.Valid() {
			return fmt.Errorf("store/memory: invalid action %q", p.Action)
		}
		if _, ok := st.resources[p.ResourceID]; !ok {
			return shared.RelationConflict("Permission references a missing resource")
		}
		return nil
	},
}

// normalize maps filter values onto the types returned by entity.get.
func normalize(v any) any {
	switch x := v.(type) {
	case domain.Action:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	}
	return v
}

func asString(col string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case domain.Action:
		return string(x), nil
	}
	return "", fmt.Errorf("store/memory: column %s expects a string, got %T", col, v)
}

func asBool(col string, v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("store/memory: column %s expects a bool, got %T", col, v)
}

func asInt64(col string, v any) (int64, error) {
	switch x := normalize(v).(type) {
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("store/memory: column %s expects an integer, got %T", col, v)
}
