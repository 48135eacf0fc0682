package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/config"
	"github.com/gin-gonic/gin"
)

type DashboardUsersRepo interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type DashboardArticlesRepo interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type DashboardCommentsRepo interface {
	Count(ctx context.Context) (int, error)
}

// AdminDashboardHandler aggregates the counters the admin landing page
// renders.
type AdminDashboardHandler struct {
	users    DashboardUsersRepo
	articles DashboardArticlesRepo
	comments DashboardCommentsRepo
}

func NewAdminDashboardHandler(users DashboardUsersRepo, articles DashboardArticlesRepo, comments DashboardCommentsRepo) *AdminDashboardHandler {
	return &AdminDashboardHandler{users: users, articles: articles, comments: comments}
}

// GET /admin/stats
func (h *AdminDashboardHandler) Stats(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	usersByStatus, err := h.users.CountByStatus(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load stats")
		return
	}

	articlesByStatus, err := h.articles.CountByStatus(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load stats")
		return
	}

	commentCount, err := h.comments.Count(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load stats")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"users":    usersByStatus,
		"articles": articlesByStatus,
		"comments": commentCount,
	})
}
