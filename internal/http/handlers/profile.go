package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ProfileUsersRepo interface {
	UpdateProfile(ctx context.Context, id, username string, avatarURL *string) (user.User, error)
}

type ProfileHandler struct {
	users ProfileUsersRepo
	jwt   *auth.Manager
	cfg   config.Config
}

func NewProfileHandler(users ProfileUsersRepo, jwtManager *auth.Manager, cfg config.Config) *ProfileHandler {
	return &ProfileHandler{users: users, jwt: jwtManager, cfg: cfg}
}

type UpdateProfileRequest struct {
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,url"`
}

// PUT /me/profile
//
// Profile edits refresh the display fields inside the session token but
// must not move its role or issuance time: the elevated-session ceiling
// keeps counting from the original login.
func (h *ProfileHandler) Update(ctx *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.UpdateProfile(cctx, claims.UserID, req.Username, req.AvatarURL)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already in use.")
		default:
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	avatar := ""
	if u.AvatarURL != nil {
		avatar = *u.AvatarURL
	}

	token, err := h.jwt.ReissueSession(claims, u.Username, avatar)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	remaining := h.cfg.SessionTTL()
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}

	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, token, int(remaining.Seconds()), "/", "", secure, true)

	ctx.JSON(http.StatusOK, gin.H{
		"user":        u,
		"accessToken": token,
	})
}
