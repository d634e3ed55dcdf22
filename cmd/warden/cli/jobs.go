package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/warden-api/warden/internal/app"
	"github.com/warden-api/warden/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers on the given Redis connection.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return QueueStats{}, err
	}
	stats.Pending = int(info.Pending)
	stats.Active = int(info.Active)
	stats.Scheduled = int(info.Scheduled)
	stats.Retry = int(info.Retry)
	stats.Archived = int(info.Archived)
	return stats, nil
}

func newJobsCommand(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print the default queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			jc := NewJobsCLI(cfg.AsynqRedis())
			defer jc.Close()
			stats, err := jc.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "resend-registration <user-id>",
		Short: "Enqueue the welcome email of an existing user again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("resend-registration: invalid user id %q", args[0])
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
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
			user, err := st.Users().FindByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			jc := NewJobsCLI(cfg.AsynqRedis())
			defer jc.Close()
			info, err := jc.client.EnqueueRegistrationMail(cmd.Context(), jobs.RegistrationPayload{
				UserID:   user.ID,
				Name:     user.Name,
				Username: user.Username,
				Email:    user.Email,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
			return nil
		},
	})
	return cmd
}
