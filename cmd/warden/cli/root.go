// Package cli builds the warden command tree.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/warden-api/warden/internal/app"
)

// Options carries the process environment into the commands.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// LoadConfig defaults to app.LoadConfig.
	LoadConfig func() (*app.Config, error)
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.LoadConfig == nil {
		o.LoadConfig = app.LoadConfig
	}
	return o
}

// load reads configuration and builds the logger.
func (o Options) load() (*app.Config, *slog.Logger, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg), nil
}

// NewRootCommand returns the warden command with every subcommand attached.
func NewRootCommand(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	root := &cobra.Command{
		Use:           "warden",
		Short:         "Role-based access control API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newSecretCommand(opts),
		newHashCommand(opts),
		newTokenCommand(opts),
		newJobsCommand(opts),
	)
	return root
}
