package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/jobs"
	"github.com/geocoder89/inkhub/internal/security"
	"github.com/gin-gonic/gin"
)

type PasswordUsersRepo interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByResetToken(ctx context.Context, token string) (user.User, error)
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ConsumePasswordReset(ctx context.Context, id, token, passwordHash string) error
}

type PasswordHandler struct {
	users PasswordUsersRepo
	jwt   *auth.Manager
	store SessionRevoker
	mail  MailEnqueuer
	cfg   config.Config
}

func NewPasswordHandler(users PasswordUsersRepo, jwtManager *auth.Manager, store SessionRevoker, mail MailEnqueuer, cfg config.Config) *PasswordHandler {
	return &PasswordHandler{
		users: users,
		jwt:   jwtManager,
		store: store,
		mail:  mail,
		cfg:   cfg,
	}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

const forgotAck = "If that email is registered, a reset link has been sent."

// POST /auth/forgot-password
//
// The response is the same whether or not the address exists; the only
// observable difference for a real account is the mail that arrives.
func (h *PasswordHandler) Forgot(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil && u.Status.CanSignIn() {
		h.issueResetToken(cctx, u, requestIDFrom(ctx))
	} else if err != nil && !errors.Is(err, user.ErrNotFound) {
		slog.Default().ErrorContext(cctx, "forgot password lookup failed", "error", err)
	}

	ctx.JSON(http.StatusAccepted, gin.H{"message": forgotAck})
}

func (h *PasswordHandler) issueResetToken(ctx context.Context, u user.User, requestID string) {
	token, err := security.NewResetToken()
	if err != nil {
		slog.Default().ErrorContext(ctx, "reset token generation failed", "user_id", u.ID, "error", err)
		return
	}

	expiry := time.Now().UTC().Add(h.cfg.ResetTokenTTL())

	if err := h.users.SetResetToken(ctx, u.ID, token, expiry); err != nil {
		slog.Default().ErrorContext(ctx, "reset token persist failed", "user_id", u.ID, "error", err)
		return
	}

	digest := security.TokenDigest(token)
	resetURL := h.cfg.AppBaseURL + "/auth/reset-password?token=" + url.QueryEscape(token)

	payload, err := jobs.EncodePayload(jobs.TypePasswordReset, jobs.PasswordResetPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		ResetURL:    resetURL,
		TokenDigest: digest,
		ExpiresAt:   expiry,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	})

	if err != nil {
		slog.Default().ErrorContext(ctx, "reset mail encode failed", "user_id", u.ID, "error", err)
		return
	}

	// keyed by token digest: a re-request mints a new token and therefore a
	// new mail, while worker retries of one job stay deduplicated
	key := "pwreset:" + digest

	if _, err := h.mail.Create(ctx, job.CreateRequest{
		Type:           string(jobs.TypePasswordReset),
		Payload:        payload,
		IdempotencyKey: &key,
		UserID:         &u.ID,
	}); err != nil {
		slog.Default().ErrorContext(ctx, "reset mail enqueue failed", "user_id", u.ID, "error", err)
		return
	}

	slog.Default().InfoContext(ctx, "password reset requested",
		"user_id", u.ID, "token_digest", digest, "request_id", requestID)
}

// POST /auth/reset-password
func (h *PasswordHandler) Reset(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByResetToken(cctx, req.Token)

	if err != nil || !u.Status.CanSignIn() {
		// expired, consumed, unknown and blocked all look identical
		RespondBadRequest(ctx, "Invalid or expired reset token", nil)
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if err := h.users.ConsumePasswordReset(cctx, u.ID, req.Token, hash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// token raced away between lookup and consumption
			RespondBadRequest(ctx, "Invalid or expired reset token", nil)
			return
		}
		RespondInternal(ctx, "Could not reset password")
		return
	}

	// every session issued before this moment dies with the old password
	if err := h.store.RevokeAllBefore(cctx, u.ID, time.Now().UTC()); err != nil {
		slog.Default().ErrorContext(cctx, "session revocation failed after reset", "user_id", u.ID, "error", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password has been reset. Please login with your new password."})
}

// POST /auth/change-password (authenticated)
func (h *PasswordHandler) Change(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		RespondBadRequest(ctx, "Current password is incorrect", nil)
		return
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.users.UpdatePassword(cctx, userID, hash); err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.store.RevokeAllBefore(cctx, userID, time.Now().UTC()); err != nil {
		slog.Default().ErrorContext(cctx, "session revocation failed after change", "user_id", userID, "error", err)
	}

	// the caller keeps working on a fresh session
	token, _, err := h.jwt.IssueSession(u)
	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, token, int(h.cfg.SessionTTL().Seconds()), "/", "", secure, true)

	ctx.JSON(http.StatusOK, gin.H{"accessToken": token})
}
