package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/warden-api/warden/internal/domain"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/shared"
	"github.com/warden-api/warden/internal/store"
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64) (domain.Token, error)
}

// Service handles user business logic.
type Service struct {
	store  store.Store
	hasher Hasher
	tokens TokenIssuer
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService builds Service instance.
func NewService(st store.Store, hasher Hasher, tokens TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, hasher: hasher, tokens: tokens, logger: logger}
}

// List returns all users ordered by id.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	list, err := s.store.Users().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return stripAll(list), nil
}

// FindByID returns the user with id.
func (s *Service) FindByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return strip(u), nil
}

// FindOne returns the first user matching lookup.
func (s *Service) FindOne(ctx context.Context, lookup Lookup, opts QueryOptions) (domain.User, error) {
	if lookup.empty() {
		return domain.User{}, errors.New("users: empty lookup")
	}
	u, err := s.store.Users().FindOne(ctx, lookup.filter())
	if err != nil {
		return domain.User{}, err
	}
	if opts.WithRoles {
		if err := loadRoles(ctx, s.store, &u); err != nil {
			return domain.User{}, err
		}
	}
	return strip(u), nil
}

// Count returns the number of users.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Users().Count(ctx)
}

func uniqueUser(username, email string, excludeID int64) rbac.Unique[domain.User] {
	u := rbac.Unique[domain.User]{
		Entity:    "User",
		ExcludeID: excludeID,
		Message: func(found domain.User) string {
			if username != "" && found.Username == username {
				return "That username already exists"
			}
			return "That email already exists"
		},
	}
	if username != "" {
		u.Any = append(u.Any, store.Eq(store.ColUsername, username))
	}
	if email != "" {
		u.Any = append(u.Any, store.Eq(store.ColEmail, email))
	}
	return u
}

// Create validates uniqueness, hashes the password and inserts the user.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.User, error) {
	email := normalizeEmail(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	active := in.Active != nil && *in.Active

	var created domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := rbac.AssertUnique(ctx, tx.Users(), uniqueUser(username, email, 0)); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return err
		}
		created, err = tx.Users().Insert(ctx, store.Values{
			store.ColName:         strings.TrimSpace(in.Name),
			store.ColUsername:     username,
			store.ColEmail:        email,
			store.ColPasswordHash: hash,
			store.ColActive:       active,
		})
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user created", slog.Int64("user_id", created.ID), slog.String("username", created.Username))
	return strip(created), nil
}

// Update patches the given fields of user id.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (domain.User, error) {
	var updated domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		current, err := rbac.AssertExistsForUpdate(ctx, tx.Users(), id)
		if err != nil {
			return err
		}
		if in.empty() {
			updated = current
			return nil
		}

		values := store.Values{}
		var username, email string
		if in.Name != nil {
			values[store.ColName] = strings.TrimSpace(*in.Name)
		}
		if in.Username != nil {
			username = strings.TrimSpace(*in.Username)
			values[store.ColUsername] = username
		}
		if in.Email != nil {
			email = normalizeEmail(strings.TrimSpace(*in.Email))
			values[store.ColEmail] = email
		}
		if in.Active != nil {
			values[store.ColActive] = *in.Active
		}
		if err := rbac.AssertUnique(ctx, tx.Users(), uniqueUser(username, email, id)); err != nil {
			return err
		}
		if in.Password != nil {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return err
			}
			values[store.ColPasswordHash] = hash
		}
		updated, err = tx.Users().Patch(ctx, id, values)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return strip(updated), nil
}

// Remove unrelates the user's roles and deletes the user.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := rbac.AssertExistsForUpdate(ctx, tx.Users(), id); err != nil {
			return err
		}
		roles := tx.UserRoles(id)
		held, err := roles.IDs(ctx)
		if err != nil {
			return err
		}
		if err := roles.Unrelate(ctx, held...); err != nil {
			return err
		}
		n, err := tx.Users().Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.NotFound("User not found")
		}
		return nil
	})
}

// UpsertRoles replaces the roles held by user id with roleIDs.
func (s *Service) UpsertRoles(ctx context.Context, id int64, roleIDs []int64) (domain.User, error) {
	u, _, err := rbac.UpsertGraph(ctx, s.store, s.logger, rbac.UserRoles(loadRoles), id, roleIDs)
	if err != nil {
		return domain.User{}, err
	}
	return strip(u), nil
}

// Authenticate verifies username and password and issues a token. Unknown
// usernames and wrong passwords fail identically.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.Token, error) {
	u, err := s.store.Users().FindOne(ctx, store.Where(store.Eq(store.ColUsername, username)))
	if errors.Is(err, shared.ErrNotFound) {
		// keep timing close to the wrong-password path
		s.hasher.Verify(password, s.dummy())
		return domain.Token{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Token{}, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return domain.Token{}, shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(u.ID)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("warden-placeholder-password")
		if err != nil {
			s.logger.Warn("dummy hash", slog.Any("error", err))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
