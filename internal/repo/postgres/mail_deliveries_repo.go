package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadySent marks a delivery that finished on another worker; the
// caller treats the job as done, not failed.
var ErrAlreadySent = errors.New("mail already sent")

// MailDeliveriesRepo gives each outbound mail an exactly-once send record.
// A delivery is keyed by (kind, dedupe_key); for reset mail the dedupe key
// is the reset token issuance, so a re-requested token sends again while a
// retried job does not.
type MailDeliveriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMailDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *MailDeliveriesRepo {
	return &MailDeliveriesRepo{pool: pool, prom: prom}
}

func (r *MailDeliveriesRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

// TryStart claims the delivery for this worker, atomically.
func (r *MailDeliveriesRepo) TryStart(ctx context.Context, kind, dedupeKey, jobID, recipient string) error {
	return r.observe("mail_deliveries.try_start", func() error {
		// 1) Insert if missing
		_, err := r.pool.Exec(ctx, `
			INSERT INTO mail_deliveries (kind, dedupe_key, job_id, recipient, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
		`, kind, dedupeKey, jobID, recipient)

		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}

		// 2) Row exists. If it was failed, claim it for retry by switching back
		// to sending. Only one worker can flip failed -> sending.
		tag, uErr := r.pool.Exec(ctx, `
			UPDATE mail_deliveries
			SET status = 'sending',
			    job_id = $3,
			    recipient = $4,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE kind = $1 AND dedupe_key = $2 AND status = 'failed'
		`, kind, dedupeKey, jobID, recipient)

		if uErr != nil {
			return uErr
		}
		if tag.RowsAffected() == 1 {
			return nil // we successfully claimed the retry
		}

		// 3) Not failed. Determine whether it's already sent or in flight.
		var status string
		var sentAt *time.Time

		qErr := r.pool.QueryRow(ctx, `
			SELECT status, sent_at
			FROM mail_deliveries
			WHERE kind = $1 AND dedupe_key = $2
		`, kind, dedupeKey).Scan(&status, &sentAt)

		if qErr != nil {
			if errors.Is(qErr, pgx.ErrNoRows) {
				// row disappeared; let caller retry
				return nil
			}
			return qErr
		}

		if sentAt != nil || status == "sent" {
			return ErrAlreadySent
		}

		// another worker is sending right now
		return ErrAlreadySent
	})
}

func (r *MailDeliveriesRepo) MarkSent(ctx context.Context, kind, dedupeKey string) error {
	return r.observe("mail_deliveries.mark_sent", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE mail_deliveries
			SET status = 'sent', sent_at = NOW(), updated_at = NOW()
			WHERE kind = $1 AND dedupe_key = $2
		`, kind, dedupeKey)
		return err
	})
}

func (r *MailDeliveriesRepo) MarkFailed(ctx context.Context, kind, dedupeKey, lastError string) error {
	return r.observe("mail_deliveries.mark_failed", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE mail_deliveries
			SET status = 'failed', last_error = $3, updated_at = NOW()
			WHERE kind = $1 AND dedupe_key = $2
		`, kind, dedupeKey, lastError)
		return err
	})
}
