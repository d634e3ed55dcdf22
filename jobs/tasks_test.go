package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-api/warden/internal/domain"
	jobmetrics "github.com/warden-api/warden/internal/jobs"
	"github.com/warden-api/warden/internal/mail"
)

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newJob(sender Sender) *RegistrationMailJob {
	return NewRegistrationMailJob(sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestRegistrationMailTaskRoundTrip(t *testing.T) {
	user := domain.User{ID: 7, Name: "Alice Liddell", Username: "alice", Email: "alice@example.com"}
	task, err := NewRegistrationMailTask(registrationPayload(user))
	require.NoError(t, err)
	assert.Equal(t, TaskTypeRegistrationMail, task.Type())

	sender := &recordingSender{}
	require.NoError(t, newJob(sender).Handle(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].TextBody, "alice")
}

func TestRegistrationMailSkipsMalformedPayload(t *testing.T) {
	sender := &recordingSender{}
	job := newJob(sender)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeRegistrationMail, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	data, err := json.Marshal(RegistrationPayload{UserID: 1, Username: "alice"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeRegistrationMail, data))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, sender.sent)
}

func TestRegistrationMailRetriesSendFailures(t *testing.T) {
	boom := errors.New("connection refused")
	task, err := NewRegistrationMailTask(RegistrationPayload{UserID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	err = newJob(&recordingSender{err: boom}).Handle(context.Background(), task)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/healthz/jobs", NewHandler(nil, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
}
