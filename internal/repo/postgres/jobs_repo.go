package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, type, payload, status, attempts, max_attempts, run_at, locked_at, locked_by, last_error, idempotency_key, user_id, created_at, updated_at`

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func scanJob(row pgx.Row) (job.Job, error) {
	var j job.Job
	var status string

	err := row.Scan(
		&j.ID, &j.Type, &j.Payload, &status, &j.Attempts, &j.MaxAttempts,
		&j.RunAt, &j.LockedAt, &j.LockedBy, &j.LastError, &j.IdempotencyKey,
		&j.UserID, &j.CreatedAt, &j.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound
		}
		return job.Job{}, err
	}

	j.Status = job.Status(status)
	return j, nil
}

// Create enqueues a job. A duplicate idempotency key is treated as an
// already-enqueued job, not an error.
func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	err := r.observe("jobs.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO jobs (`+jobColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			 ON CONFLICT (idempotency_key) DO NOTHING`,
			j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts,
			j.RunAt, j.LockedAt, j.LockedBy, j.LastError, j.IdempotencyKey,
			j.UserID, j.CreatedAt, j.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return job.Job{}, err
	}

	return j, nil
}

// ClaimNext picks the oldest runnable pending job and flips it to
// processing under SKIP LOCKED, so concurrent workers never double claim.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	var j job.Job
	var err error

	err = r.observe("jobs.claim_next", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx, `
			UPDATE jobs
			SET status = 'processing',
			    attempts = attempts + 1,
			    locked_at = NOW(),
			    locked_by = $1,
			    updated_at = NOW()
			WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= NOW()
				ORDER BY run_at ASC, created_at ASC
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING `+jobColumns,
			workerID,
		))
		return err
	})

	return j, err
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.observe("jobs.mark_done", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'done',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id = $1
		`, id)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return job.ErrJobNotFound
		}
		return nil
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.observe("jobs.mark_failed", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'failed',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, errMsg)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return job.ErrJobNotFound
		}
		return nil
	})
}

// Reschedule puts a claimed job back to pending to retry after a delay.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.observe("jobs.reschedule", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = $3,
			    run_at = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, runAt, errMsg)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return job.ErrJobNotFound
		}
		return nil
	})
}

// ErrJobNotFailed guards the retry endpoint: only dead-lettered jobs may
// be requeued by hand.
var ErrJobNotFailed = errors.New("job is not in failed state")

func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	var j job.Job
	var err error

	err = r.observe("jobs.get_by_id", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
		return err
	})

	return j, err
}

func (r *JobsRepo) GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error) {
	var j job.Job
	var err error

	err = r.observe("jobs.get_by_idempotency_key", func() error {
		j, err = scanJob(r.pool.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key))
		return err
	})

	return j, err
}

// Retry requeues a single failed job with a fresh attempt budget.
func (r *JobsRepo) Retry(ctx context.Context, id string) error {
	return r.observe("jobs.retry", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    attempts = 0,
			    run_at = NOW(),
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id = $1 AND status = 'failed'
		`, id)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// distinguish missing from not-failed
			var exists bool
			if qErr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); qErr != nil {
				return qErr
			}
			if !exists {
				return job.ErrJobNotFound
			}
			return ErrJobNotFailed
		}
		return nil
	})
}

// RetryManyFailed requeues up to limit dead-lettered jobs, oldest first.
func (r *JobsRepo) RetryManyFailed(ctx context.Context, limit int) (int64, error) {
	var n int64

	err := r.observe("jobs.retry_many_failed", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE jobs
			SET status = 'pending',
			    attempts = 0,
			    run_at = NOW(),
			    locked_at = NULL,
			    locked_by = NULL,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'failed'
				ORDER BY updated_at ASC
				LIMIT $1
			)
		`, limit)

		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}

// List backs the admin mail-jobs view.
func (r *JobsRepo) List(ctx context.Context, status *job.Status, limit, offset int) ([]job.Job, int, error) {
	query := `SELECT ` + jobColumns + `, COUNT(*) OVER() AS total FROM jobs`
	var args []interface{}

	if status != nil {
		query += ` WHERE status = $1 ORDER BY updated_at DESC, id ASC LIMIT $2 OFFSET $3`
		args = append(args, string(*status), limit, offset)
	} else {
		query += ` ORDER BY updated_at DESC, id ASC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	var out []job.Job
	total := 0

	err := r.observe("jobs.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]job.Job, 0, limit)

		for rows.Next() {
			var j job.Job
			var st string
			var t int

			err = rows.Scan(
				&j.ID, &j.Type, &j.Payload, &st, &j.Attempts, &j.MaxAttempts,
				&j.RunAt, &j.LockedAt, &j.LockedBy, &j.LastError, &j.IdempotencyKey,
				&j.UserID, &j.CreatedAt, &j.UpdatedAt, &t,
			)

			if err != nil {
				return err
			}

			j.Status = job.Status(st)
			total = t
			out = append(out, j)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}
