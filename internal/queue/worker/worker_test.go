package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/jobs"
	"github.com/geocoder89/inkhub/internal/notifications"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/geocoder89/inkhub/internal/repo/postgres"
)

type fakeJobsRepo struct {
	queue []job.Job

	done        []string
	failed      []string
	rescheduled []string
}

func (f *fakeJobsRepo) ClaimNext(_ context.Context, _ string) (job.Job, error) {
	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}
	j := f.queue[0]
	f.queue = f.queue[1:]
	j.Attempts++
	return j, nil
}

func (f *fakeJobsRepo) MarkDone(_ context.Context, id string) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(_ context.Context, id string, _ string) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeJobsRepo) Reschedule(_ context.Context, id string, _ time.Time, _ string) error {
	f.rescheduled = append(f.rescheduled, id)
	return nil
}

type fakeDeliveries struct {
	started     []string
	sent        []string
	failed      []string
	alreadySent bool
}

func (f *fakeDeliveries) TryStart(_ context.Context, kind, dedupeKey, _, _ string) error {
	if f.alreadySent {
		return postgres.ErrAlreadySent
	}
	f.started = append(f.started, kind+"/"+dedupeKey)
	return nil
}

func (f *fakeDeliveries) MarkSent(_ context.Context, kind, dedupeKey string) error {
	f.sent = append(f.sent, kind+"/"+dedupeKey)
	return nil
}

func (f *fakeDeliveries) MarkFailed(_ context.Context, kind, dedupeKey, _ string) error {
	f.failed = append(f.failed, kind+"/"+dedupeKey)
	return nil
}

type fakeNotifier struct {
	sent    []string
	sendErr error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, in notifications.SendPasswordResetInput) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, in.Email)
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, in notifications.SendWelcomeInput) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, in.Email)
	return nil
}

func resetJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := jobs.EncodePayload(jobs.TypePasswordReset, jobs.PasswordResetPayload{
		UserID:      "u1",
		Email:       "reader@example.com",
		Username:    "reader",
		ResetURL:    "https://blog.example.com/auth/reset-password?token=abc",
		TokenDigest: "digest-1",
		ExpiresAt:   time.Now().Add(time.Hour),
		RequestedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	return job.Job{
		ID:          "job-1",
		Type:        string(jobs.TypePasswordReset),
		Payload:     payload,
		Status:      job.StatusPending,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func newTestWorker(repo *fakeJobsRepo, del *fakeDeliveries, n notifications.Notifier) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{WorkerID: "test-1"}, repo, del, n, logger, observability.NewMailMetrics())
}

func TestProcessOne_SendsAndMarksDone(t *testing.T) {
	repo := &fakeJobsRepo{queue: []job.Job{resetJob(t, 0, 5)}}
	del := &fakeDeliveries{}
	n := &fakeNotifier{}

	w := newTestWorker(repo, del, n)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}

	if len(n.sent) != 1 || n.sent[0] != "reader@example.com" {
		t.Fatalf("expected one mail to reader, got %v", n.sent)
	}
	if len(del.sent) != 1 || del.sent[0] != "password_reset/digest-1" {
		t.Fatalf("expected delivery marked sent, got %v", del.sent)
	}
	if len(repo.done) != 1 {
		t.Fatalf("expected job marked done, got done=%v failed=%v", repo.done, repo.failed)
	}
}

func TestProcessOne_AlreadySentIsSuccess(t *testing.T) {
	repo := &fakeJobsRepo{queue: []job.Job{resetJob(t, 1, 5)}}
	del := &fakeDeliveries{alreadySent: true}
	n := &fakeNotifier{}

	w := newTestWorker(repo, del, n)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(n.sent) != 0 {
		t.Fatalf("mail must not be sent twice, got %v", n.sent)
	}
	if len(repo.done) != 1 {
		t.Fatalf("duplicate delivery should still finish the job, done=%v", repo.done)
	}
}

func TestProcessOne_ProviderErrorReschedules(t *testing.T) {
	repo := &fakeJobsRepo{queue: []job.Job{resetJob(t, 0, 5)}}
	del := &fakeDeliveries{}
	n := &fakeNotifier{sendErr: errors.New("provider down")}

	w := newTestWorker(repo, del, n)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(repo.rescheduled) != 1 {
		t.Fatalf("expected retry, rescheduled=%v failed=%v", repo.rescheduled, repo.failed)
	}
	if len(del.failed) != 1 {
		t.Fatalf("expected delivery marked failed, got %v", del.failed)
	}
}

func TestProcessOne_ExhaustedAttemptsDeadLetters(t *testing.T) {
	// claim bumps attempts to 5 == max
	repo := &fakeJobsRepo{queue: []job.Job{resetJob(t, 4, 5)}}
	del := &fakeDeliveries{}
	n := &fakeNotifier{sendErr: errors.New("provider down")}

	w := newTestWorker(repo, del, n)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(repo.failed) != 1 {
		t.Fatalf("expected dead letter, failed=%v rescheduled=%v", repo.failed, repo.rescheduled)
	}
}

func TestProcessOne_UndecodablePayloadIsPermanent(t *testing.T) {
	j := resetJob(t, 0, 5)
	j.Payload = []byte("{not json")

	repo := &fakeJobsRepo{queue: []job.Job{j}}
	del := &fakeDeliveries{}
	n := &fakeNotifier{}

	w := newTestWorker(repo, del, n)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(repo.failed) != 1 || len(repo.rescheduled) != 0 {
		t.Fatalf("bad payload must not retry, failed=%v rescheduled=%v", repo.failed, repo.rescheduled)
	}
	if len(n.sent) != 0 {
		t.Fatalf("no mail expected, got %v", n.sent)
	}
}
