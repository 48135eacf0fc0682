package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/repo/postgres"
	"github.com/geocoder89/inkhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminJobsRepo interface {
	List(ctx context.Context, status *job.Status, limit, offset int) ([]job.Job, int, error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
	RetryManyFailed(ctx context.Context, limit int) (int64, error)
}

// AdminJobsHandler exposes the mail queue for operators: inspect what is
// pending or dead, requeue one job or a batch of failures.
type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{
		repo: repo,
	}
}

// GET /admin/jobs?status=failed&limit=50&offset=0
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}
	offset := parseIntDefault(ctx.Query("offset"), 0)

	var statusPtr *job.Status
	if s := ctx.Query("status"); s != "" {
		status := job.Status(s)
		switch status {
		case job.StatusPending, job.StatusProcessing, job.StatusDone, job.StatusFailed:
			statusPtr = &status
		default:
			RespondBadRequest(ctx, "status must be pending, processing, done or failed", nil)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, statusPtr, limit, offset)
	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GET /admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "id must be a UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}

		RespondInternal(ctx, "Could not fetch job")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// PUT /admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "id must be a UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Retry(cctx, id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}
		if errors.Is(err, postgres.ErrJobNotFailed) {
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
			return
		}
		RespondInternal(ctx, "Could not retry job")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": "pending",
	})
}

// POST /admin/jobs/reprocess-dead?limit=50
func (h *AdminJobsHandler) ReprocessDead(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 50)
	if limit < 1 || limit > 500 {
		RespondBadRequest(ctx, "limit must be between 1 and 500", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	n, err := h.repo.RetryManyFailed(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not reprocess dead jobs")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"requeued": n,
	})
}
