package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/warden-api/warden/internal/auth"
)

func newSecretCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random secret for JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := auth.GenerateSecret()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JWT_SECRET=%s\n", secret)
			return nil
		},
	}
}

func newHashCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.NewBcryptHasher().Hash(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newTokenCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id> [expires-in]",
		Short: "Print a signed token for a user id, without expiry unless a duration is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("token: invalid user id %q", args[0])
			}
			var expiresIn time.Duration
			if len(args) == 2 {
				if expiresIn, err = time.ParseDuration(args[1]); err != nil {
					return fmt.Errorf("token: invalid duration %q", args[1])
				}
			}
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.AuthRenewIn)
			if err != nil {
				return err
			}
			token, err := tokens.Sign(id, expiresIn)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token.Value)
			return nil
		},
	}
}
