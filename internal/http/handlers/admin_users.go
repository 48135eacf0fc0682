package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/policy"
	"github.com/geocoder89/inkhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminUsersRepo interface {
	List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error)
	UpdateStatus(ctx context.Context, id string, status user.Status) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// AdminUsersHandler is the user management surface. Every mutating route
// runs the self-action policy first: an admin can never demote, suspend
// or delete their own account, whatever their role says.
type AdminUsersHandler struct {
	repo  AdminUsersRepo
	store SessionRevoker
}

func NewAdminUsersHandler(repo AdminUsersRepo, store SessionRevoker) *AdminUsersHandler {
	return &AdminUsersHandler{repo: repo, store: store}
}

type UpdateRoleRequest struct {
	Role user.Role `json:"role" binding:"required,oneof=USER EDITOR ADMIN"`
}

type UpdateStatusRequest struct {
	Status user.Status `json:"status" binding:"required,oneof=ACTIVE SUSPENDED BANNED"`
}

// GET /admin/users
func (h *AdminUsersHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}
	offset := parseIntDefault(ctx.Query("offset"), 0)

	filter := user.ListFilter{Limit: limit, Offset: offset}

	if roleStr := ctx.Query("role"); roleStr != "" {
		role := user.Role(roleStr)
		if !role.IsValid() {
			RespondBadRequest(ctx, "role must be USER, EDITOR or ADMIN", nil)
			return
		}
		filter.Role = &role
	}

	if statusStr := ctx.Query("status"); statusStr != "" {
		status := user.Status(statusStr)
		if !status.IsValid() {
			RespondBadRequest(ctx, "status must be ACTIVE, SUSPENDED or BANNED", nil)
			return
		}
		filter.Status = &status
	}

	if q := ctx.Query("q"); q != "" {
		filter.Query = &q
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GET /admin/users/:id
func (h *AdminUsersHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

// guardSelfAction runs the policy and writes the 403 when it trips.
func guardSelfAction(ctx *gin.Context, targetID string, action policy.Action) bool {
	actorID, _ := middlewares.UserIDFromContext(ctx)

	if err := policy.CheckSelfAction(actorID, targetID, action); err != nil {
		RespondForbidden(ctx, policy.Code(err), err.Error())
		return false
	}
	return true
}

// PUT /admin/users/:id/role
func (h *AdminUsersHandler) UpdateRole(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// only a change away from ADMIN counts as a demotion
	if req.Role != user.RoleAdmin {
		if !guardSelfAction(ctx, id, policy.ActionDemote) {
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.UpdateRole(cctx, id, req.Role)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update role")
		return
	}

	// sessions carry the role at login; old tokens must not keep the old
	// privilege level
	h.revokeSessions(cctx, id)

	ctx.JSON(http.StatusOK, u)
}

// PUT /admin/users/:id/status
func (h *AdminUsersHandler) UpdateStatus(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	var req UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Status != user.StatusActive {
		if !guardSelfAction(ctx, id, policy.ActionSuspend) {
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.UpdateStatus(cctx, id, req.Status)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update status")
		return
	}

	if req.Status != user.StatusActive {
		h.revokeSessions(cctx, id)
	}

	ctx.JSON(http.StatusOK, u)
}

// DELETE /admin/users/:id
func (h *AdminUsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	if !guardSelfAction(ctx, id, policy.ActionDelete) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.revokeSessions(cctx, id)

	ctx.Status(http.StatusNoContent)
}

func (h *AdminUsersHandler) revokeSessions(ctx context.Context, userID string) {
	if err := h.store.RevokeAllBefore(ctx, userID, time.Now().UTC()); err != nil {
		slog.Default().ErrorContext(ctx, "session revocation failed", "user_id", userID, "error", err)
	}
}
