package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/warden-api/warden/internal/app"
	"github.com/warden-api/warden/internal/platform/db"
)

func newMigrateCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != app.StoreDriverPostgres {
				return fmt.Errorf("migrate: store driver %q has no schema", cfg.StoreDriver)
			}
			pool, err := db.New(cmd.Context(), db.Options{DSN: cfg.PGDSN, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool, logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, version := range applied {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
			}
			return nil
		},
	}
}

func newSeedCommand(opts Options) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default resources, permissions, admin role and admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if password == "" {
				password = cfg.SeedAdminPassword
			}
			if password == "" {
				return errors.New("seed: set SEED_ADMIN_PASSWORD or --password")
			}

			deps := &app.Deps{}
			defer func() {
				if err := deps.Close(); err != nil {
					logger.Warn("close dependencies", slog.Any("error", err))
				}
			}()
			st, err := app.OpenStore(cmd.Context(), cfg, logger, deps)
			if err != nil {
				return err
			}
			deps.Store = st
			rt, err := app.NewRuntime(cfg, logger, deps)
			if err != nil {
				return err
			}
			report, err := rt.Seed(cmd.Context(), app.SeedOptions{
				Username: cfg.SeedAdminUsername,
				Name:     cfg.SeedAdminName,
				Email:    cfg.SeedAdminEmail,
				Password: password,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password (defaults to SEED_ADMIN_PASSWORD)")
	return cmd
}
