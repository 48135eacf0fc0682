package worker

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/jobs"
	"github.com/geocoder89/inkhub/internal/notifications"
	"github.com/geocoder89/inkhub/internal/repo/postgres"
)

// ProcessOne claims and executes a single job. It returns whether a job was
// claimed at all, so the run loop knows when the queue is drained.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, w.cfg.ClaimTimeout)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.metrics.IncClaimed()
	w.logger.Info("claimed job", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts)

	started := time.Now()
	err = w.execute(ctx, j)
	w.metrics.ObserveDuration(time.Since(started))

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.IncDone()
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	t := jobs.Type(j.Type)

	decoded, err := jobs.DecodePayload(t, j.Payload)
	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(t, decoded); err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.PasswordResetPayload:
		return w.sendMail(ctx, "password_reset", p.TokenDigest, j.ID, p.Email, func() error {
			return w.notifier.SendPasswordReset(ctx, notifications.SendPasswordResetInput{
				Email:     p.Email,
				Username:  p.Username,
				ResetURL:  p.ResetURL,
				ExpiresAt: p.ExpiresAt,
			})
		})

	case jobs.WelcomePayload:
		return w.sendMail(ctx, "welcome", p.UserID, j.ID, p.Email, func() error {
			return w.notifier.SendWelcome(ctx, notifications.SendWelcomeInput{
				Email:    p.Email,
				Username: p.Username,
			})
		})

	default:
		return jobs.ErrInvalidType
	}
}

// sendMail wraps a notifier call in the exactly-once delivery record. A
// retried job whose mail already went out is treated as success.
func (w *Worker) sendMail(ctx context.Context, kind, dedupeKey, jobID, recipient string, send func() error) error {
	err := w.delivery.TryStart(ctx, kind, dedupeKey, jobID, recipient)

	if err != nil {
		if errors.Is(err, postgres.ErrAlreadySent) {
			w.logger.Info("mail already delivered, skipping", "kind", kind, "job_id", jobID)
			return nil
		}
		return err
	}

	if err := send(); err != nil {
		_ = w.delivery.MarkFailed(ctx, kind, dedupeKey, err.Error())
		return err
	}

	return w.delivery.MarkSent(ctx, kind, dedupeKey)
}

// handleFailure retries with backoff until attempts are exhausted, then
// dead-letters the job as failed.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	w.metrics.IncFailed()

	// non-retryable: a payload that does not decode will never decode
	permanent := errors.Is(execErr, jobs.ErrInvalidType) ||
		errors.Is(execErr, jobs.ErrInvalidPayload) ||
		errors.Is(execErr, jobs.ErrPayloadTypeMismatch)

	if permanent || j.Attempts >= j.MaxAttempts {
		w.metrics.IncDeadLettered()
		w.logger.Error("job dead-lettered",
			"job_id", j.ID, "type", j.Type, "attempt", j.Attempts, "error", execErr)

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.logger.Error("mark failed error", "job_id", j.ID, "error", err)
		}
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	w.metrics.IncRetried()
	w.logger.Warn("job retry scheduled",
		"job_id", j.ID, "attempt", j.Attempts, "delay", delay, "error", execErr)

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), execErr.Error()); err != nil {
		w.logger.Error("reschedule error", "job_id", j.ID, "error", err)
	}
}
