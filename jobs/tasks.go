package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/warden-api/warden/internal/domain"
	jobmetrics "github.com/warden-api/warden/internal/jobs"
	"github.com/warden-api/warden/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRegistrationMail sends the welcome email of a new account.
	TaskTypeRegistrationMail = "mail:registration"

	registrationMaxRetry = 5
)

// RegistrationPayload describes the account a welcome email is sent to.
type RegistrationPayload struct {
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func registrationPayload(u domain.User) RegistrationPayload {
	return RegistrationPayload{UserID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email}
}

// NewRegistrationMailTask constructs an Asynq task.
func NewRegistrationMailTask(payload RegistrationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRegistrationMail, data, asynq.MaxRetry(registrationMaxRetry)), nil
}

// Sender delivers rendered email.
type Sender interface {
	Send(msg mail.Message) error
}

// RegistrationMailJob processes TaskTypeRegistrationMail tasks.
type RegistrationMailJob struct {
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRegistrationMailJob builds the job handler.
func NewRegistrationMailJob(sender Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *RegistrationMailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationMailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle renders and sends the welcome email. Malformed payloads are not retried.
func (j *RegistrationMailJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track(TaskTypeRegistrationMail)
	var payload RegistrationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(fmt.Errorf("decode registration payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.Email == "" {
		return tracker.End(fmt.Errorf("registration payload without email: %w", asynq.SkipRetry))
	}
	if err := ctx.Err(); err != nil {
		return tracker.End(err)
	}
	msg, err := mail.RenderRegistration(mail.Registration{
		Name:     payload.Name,
		Username: payload.Username,
		Email:    payload.Email,
	})
	if err != nil {
		return tracker.End(fmt.Errorf("render registration mail: %w", err))
	}
	if err := j.Sender.Send(msg); err != nil {
		j.Logger.Warn("registration mail failed", slog.Int64("user_id", payload.UserID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("registration mail sent", slog.Int64("user_id", payload.UserID))
	return tracker.End(nil)
}
