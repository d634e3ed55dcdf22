// Package memory implements store.Store in process memory. It backs the test
// suites and the STORE_DRIVER=memory development mode.
//
// Transactions are serialised: WithTx works on a private copy of the state and
// swaps it in on commit. Writes outside a transaction wait for running
// transactions so no committed change is lost.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/store"
)

type pair struct{ owner, target int64 }

type state struct {
	users       map[int64]domain.User
	roles       map[int64]domain.Role
	resources   map[int64]domain.Resource
	permissions map[int64]domain.Permission

	// usersRoles keys are (user, role); rolesPermissions keys are (role, permission).
	usersRoles       map[pair]struct{}
	rolesPermissions map[pair]struct{}

	seq map[string]int64
}

func newState() *state {
	return &state{
		users:            map[int64]domain.User{},
		roles:            map[int64]domain.Role{},
		resources:        map[int64]domain.Resource{},
		permissions:      map[int64]domain.Permission{},
		usersRoles:       map[pair]struct{}{},
		rolesPermissions: map[pair]struct{}{},
		seq:              map[string]int64{},
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.roles {
		out.roles[k] = v
	}
	for k, v := range st.resources {
		out.resources[k] = v
	}
	for k, v := range st.permissions {
		out.permissions[k] = v
	}
	for k := range st.usersRoles {
		out.usersRoles[k] = struct{}{}
	}
	for k := range st.rolesPermissions {
		out.rolesPermissions[k] = struct{}{}
	}
	for k, v := range st.seq {
		out.seq[k] = v
	}
	return out
}

func (st *state) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

type root struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

type txState struct {
	mu sync.RWMutex
	st *state
}

// Store is an in-memory store.Store.
type Store struct {
	root *root
	tx   *txState
	now  func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		root: &root{st: newState()},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) read(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		s.tx.mu.RLock()
		defer s.tx.mu.RUnlock()
		return fn(s.tx.st)
	}
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	return fn(s.root.st)
}

// write runs fn with exclusive access. fn validates before mutating so a
// failed write leaves the state untouched.
func (s *Store) write(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		s.tx.mu.Lock()
		defer s.tx.mu.Unlock()
		return fn(s.tx.st)
	}
	s.root.txMu.Lock()
	defer s.root.txMu.Unlock()
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.st)
}

// WithTx runs fn against a copy of the state and publishes it when fn
// succeeds. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.root.txMu.Lock()
	defer s.root.txMu.Unlock()

	s.root.mu.RLock()
	work := s.root.st.clone()
	s.root.mu.RUnlock()

	bound := &Store{root: s.root, tx: &txState{st: work}, now: s.now}
	if err := fn(ctx, bound); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.mu.Lock()
	s.root.st = work
	s.root.mu.Unlock()
	return nil
}

func (s *Store) Users() store.Table[domain.User] {
	return &table[domain.User]{s: s, e: users}
}

func (s *Store) Roles() store.Table[domain.Role] {
	return &table[domain.Role]{s: s, e: roles}
}

func (s *Store) Permissions() store.Table[domain.Permission] {
	return &table[domain.Permission]{s: s, e: permissions}
}

func (s *Store) Resources() store.Table[domain.Resource] {
	return &table[domain.Resource]{s: s, e: resources}
}

func (s *Store) UserRoles(userID int64) store.Related[domain.Role] {
	return &related[domain.Role]{s: s, target: roles, ownerTable: "users", ownerID: userID, ownerFirst: true, join: usersRolesJoin, ownerExists: userExists}
}

func (s *Store) RoleUsers(roleID int64) store.Related[domain.User] {
	return &related[domain.User]{s: s, target: users, ownerTable: "roles", ownerID: roleID, ownerFirst: false, join: usersRolesJoin, ownerExists: roleExists}
}

func (s *Store) RolePermissions(roleID int64) store.Related[domain.Permission] {
	return &related[domain.Permission]{s: s, target: permissions, ownerTable: "roles", ownerID: roleID, ownerFirst: true, join: rolesPermissionsJoin, ownerExists: roleExists}
}

func (s *Store) PermissionRoles(permissionID int64) store.Related[domain.Role] {
	return &related[domain.Role]{s: s, target: roles, ownerTable: "permissions", ownerID: permissionID, ownerFirst: false, join: rolesPermissionsJoin, ownerExists: permissionExists}
}

func usersRolesJoin(st *state) map[pair]struct{}       { return st.usersRoles }
func rolesPermissionsJoin(st *state) map[pair]struct{} { return st.rolesPermissions }

func userExists(st *state, id int64) bool {
	_, ok := st.users[id]
	return ok
}

func roleExists(st *state, id int64) bool {
	_, ok := st.roles[id]
	return ok
}

func permissionExists(st *state, id int64) bool {
	_, ok := st.permissions[id]
	return ok
}
