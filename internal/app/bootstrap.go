package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/warden-api/warden/internal/auth"
	"github.com/warden-api/warden/internal/observability"
	"github.com/warden-api/warden/internal/permissions"
	"github.com/warden-api/warden/internal/platform/cache"
	"github.com/warden-api/warden/internal/platform/db"
	"github.com/warden-api/warden/internal/rbac"
	"github.com/warden-api/warden/internal/roles"
	"github.com/warden-api/warden/internal/store"
	"github.com/warden-api/warden/internal/store/memory"
	"github.com/warden-api/warden/internal/store/postgres"
	"github.com/warden-api/warden/internal/users"
	"github.com/warden-api/warden/jobs"
)

// Deps are the external resources a Runtime is built on. Redis, Jobs and
// Inspector are optional.
type Deps struct {
	Store     store.Store
	Redis     *redis.Client
	Jobs      *jobs.Client
	Inspector *asynq.Inspector

	closers []func() error
}

// Close releases every resource opened by Open, last opened first.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Open connects the store selected by STORE_DRIVER, Redis and the job queue.
// An unreachable Redis only disables login throttling.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Deps, error) {
	deps := &Deps{}
	st, err := OpenStore(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	deps.Store = st

	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, login throttling disabled", slog.Any("error", err))
	} else {
		deps.Redis = client
		deps.closers = append(deps.closers, client.Close)
	}

	redisOpts := cfg.AsynqRedis()
	deps.Jobs = jobs.NewClient(redisOpts)
	deps.closers = append(deps.closers, deps.Jobs.Close)
	deps.Inspector = asynq.NewInspector(redisOpts)
	deps.closers = append(deps.closers, deps.Inspector.Close)
	return deps, nil
}

// OpenStore builds the configured store. Closers for opened resources are
// registered on deps.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger, deps *Deps) (store.Store, error) {
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil
	case StoreDriverPostgres:
		pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, AcquireTimeout: cfg.PGAcquireTimeout})
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() error {
			pool.Close()
			return nil
		})
		return postgres.New(pool, cfg.PGAcquireTimeout), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Runtime holds the wired services and the HTTP handler of the API.
type Runtime struct {
	Config      *Config
	Logger      *slog.Logger
	Store       store.Store
	Tokens      *auth.Tokens
	Hasher      auth.BcryptHasher
	Metrics     *observability.Metrics
	Authorizer  *rbac.Authorizer
	Users       *users.Service
	Roles       *roles.Service
	Permissions *permissions.Service
	Router      http.Handler
}

// NewRuntime wires services and handlers on deps.
func NewRuntime(cfg *Config, logger *slog.Logger, deps *Deps) (*Runtime, error) {
	if deps == nil || deps.Store == nil {
		return nil, errors.New("app: store is required")
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.AuthRenewIn)
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetrics()
	hasher := auth.NewBcryptHasher()

	userService := users.NewService(deps.Store, hasher, tokens, logger)
	roleService := roles.NewService(deps.Store, logger)
	permissionService := permissions.NewService(deps.Store, logger)
	authorizer := rbac.NewAuthorizer(deps.Store, logger, metrics)
	rbacMiddleware := rbac.Middleware{Resolver: authorizer, Logger: logger}

	var throttle *auth.LoginThrottle
	if deps.Redis != nil {
		throttle = auth.NewLoginThrottle(deps.Redis, cfg.LoginMaxAttempts, cfg.LoginWindow)
	}
	var notifier users.Notifier
	if deps.Jobs != nil {
		notifier = deps.Jobs
	}
	var jobHandler *jobs.Handler
	if deps.Inspector != nil {
		jobHandler = jobs.NewHandler(deps.Inspector, logger)
	}

	router := NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, userService, throttle, metrics),
		AuthMiddleware:     auth.Middleware{Tokens: tokens, Users: userService, Logger: logger},
		UsersHandler:       users.NewHandler(logger, userService, rbacMiddleware, notifier),
		RolesHandler:       roles.NewHandler(logger, roleService, rbacMiddleware),
		PermissionsHandler: permissions.NewHandler(logger, permissionService, rbacMiddleware),
		JobHandler:         jobHandler,
		Metrics:            metrics,
		RequestLog:         !cfg.IsProduction() && !InTestMode(),
	})

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Store:       deps.Store,
		Tokens:      tokens,
		Hasher:      hasher,
		Metrics:     metrics,
		Authorizer:  authorizer,
		Users:       userService,
		Roles:       roleService,
		Permissions: permissionService,
		Router:      router,
	}, nil
}
