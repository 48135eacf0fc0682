// Package worker drains the jobs table and turns mail jobs into outbound
// notifications. It polls postgres; SKIP LOCKED in the repo keeps multiple
// replicas from double-claiming.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/notifications"
	"github.com/geocoder89/inkhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type DeliveriesRepository interface {
	TryStart(ctx context.Context, kind, dedupeKey, jobID, recipient string) error
	MarkSent(ctx context.Context, kind, dedupeKey string) error
	MarkFailed(ctx context.Context, kind, dedupeKey, lastError string) error
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	ClaimTimeout time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	delivery DeliveriesRepository
	notifier notifications.Notifier
	logger   *slog.Logger
	metrics  *observability.MailMetrics

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, delivery DeliveriesRepository, notifier notifications.Notifier, logger *slog.Logger, metrics *observability.MailMetrics) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = 2 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		delivery: delivery,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

// Run polls until the context is cancelled. After each tick it keeps
// processing until the queue is empty, so a burst drains faster than one
// job per interval.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker received shutdown signal")
			return nil

		case <-ticker.C:
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.logger.Error("process error", "error", err)
					break
				}

				if !processed {
					break
				}

				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}
