package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/job"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/jobs"
	"github.com/geocoder89/inkhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keep these interfaces small so tests can fake them easily.

type AuthUsersRepo interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type SessionRevoker interface {
	RevokeToken(ctx context.Context, jti string, until time.Time) error
	RevokeAllBefore(ctx context.Context, userID string, cutoff time.Time) error
}

type MailEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users AuthUsersRepo
	jwt   *auth.Manager
	store SessionRevoker
	mail  MailEnqueuer
	cfg   config.Config
}

func NewAuthHandler(users AuthUsersRepo, jwtManager *auth.Manager, store SessionRevoker, mail MailEnqueuer, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		store: store,
		mail:  mail,
		cfg:   cfg,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type OAuthLoginRequest struct {
	Provider  string  `json:"provider" binding:"required,min=2,max=30"`
	Email     string  `json:"email" binding:"required,email"`
	Username  string  `json:"username" binding:"required,min=1,max=50"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,url"`
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, ttl time.Duration) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetCookie(middlewares.SessionCookie, "", -1, "/", "", secure, true)
}

// POST /auth/register
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()

	u, err := h.users.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         user.RoleUser,
		Status:       user.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrUsernameTaken):
			RespondConflict(ctx, "username_taken", "Username is already in use.")
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	token, _, err := h.jwt.IssueSession(u)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, h.cfg.SessionTTL())

	h.enqueueWelcomeMail(cctx, u, requestIDFrom(ctx))

	ctx.JSON(http.StatusCreated, gin.H{
		"user":        u,
		"accessToken": token,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// unknown email and wrong password are indistinguishable on purpose
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	// only after the password matched may the status leak
	if !foundUser.Status.CanSignIn() {
		code := "account_suspended"
		if foundUser.Status == user.StatusBanned {
			code = "account_banned"
		}
		RespondForbidden(ctx, code, "This account cannot sign in.")
		return
	}

	token, _, err := h.jwt.IssueSession(foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, h.cfg.SessionTTL())

	ctx.JSON(http.StatusOK, gin.H{
		"user":        foundUser,
		"accessToken": token,
	})
}

// how many suffixed usernames to try when provisioning a federated
// account whose provider username is taken
const maxUsernameAttempts = 50

func (h *AuthHandler) provisionFederated(ctx context.Context, req OAuthLoginRequest) (user.User, error) {
	username := req.Username

	for n := 1; ; n++ {
		_, err := h.users.GetByUsername(ctx, username)
		if errors.Is(err, user.ErrNotFound) {
			break
		}
		if err != nil {
			return user.User{}, err
		}
		if n >= maxUsernameAttempts {
			return user.User{}, user.ErrUsernameTaken
		}
		username = fmt.Sprintf("%s%d", req.Username, n)
	}

	now := time.Now().UTC()

	// No password hash: a federated account cannot sign in with
	// credentials until it sets one through the reset flow.
	return h.users.Create(ctx, user.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Username:  username,
		AvatarURL: req.AvatarURL,
		Role:      user.RoleUser,
		Status:    user.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// POST /auth/oauth
//
// Accepts a profile the caller already verified against the identity
// provider. First login provisions a USER account, suffixing the
// username when taken. The status gate still applies: a suspended or
// banned account cannot come back in through a provider.
func (h *AuthHandler) OAuth(ctx *gin.Context) {
	var req OAuthLoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	switch {
	case err == nil:
		if !u.Status.CanSignIn() {
			code := "account_suspended"
			if u.Status == user.StatusBanned {
				code = "account_banned"
			}
			RespondForbidden(ctx, code, "This account cannot sign in.")
			return
		}

	case errors.Is(err, user.ErrNotFound):
		u, err = h.provisionFederated(cctx, req)
		if err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}
		h.enqueueWelcomeMail(cctx, u, requestIDFrom(ctx))

	default:
		RespondInternal(ctx, "Could not sign in")
		return
	}

	token, _, err := h.jwt.IssueSession(u)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, h.cfg.SessionTTL())

	ctx.JSON(http.StatusOK, gin.H{
		"user":        u,
		"accessToken": token,
	})
}

// POST /auth/logout
//
// Logout is idempotent: whatever the state of the presented token, the
// cookie is cleared and 204 comes back. A verifiable token is also put on
// the denylist so it cannot be replayed from a stolen copy.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw := middlewares.ExtractToken(ctx)

	if raw != "" {
		if claims, err := h.jwt.VerifySession(raw); err == nil {
			cctx, cancel := config.WithTimeout(2 * time.Second)
			defer cancel()

			until := time.Now().UTC().Add(h.cfg.SessionTTL())
			if claims.ExpiresAt != nil {
				until = claims.ExpiresAt.Time
			}

			if err := h.store.RevokeToken(cctx, claims.JTI, until); err != nil {
				slog.Default().ErrorContext(cctx, "session revoke failed",
					"user_id", claims.UserID, "error", err)
			}
		}
	}

	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// GET /auth/me
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) enqueueWelcomeMail(ctx context.Context, u user.User, requestID string) {
	payload, err := jobs.EncodePayload(jobs.TypeWelcome, jobs.WelcomePayload{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	})

	if err != nil {
		slog.Default().ErrorContext(ctx, "welcome mail encode failed", "user_id", u.ID, "error", err)
		return
	}

	key := "welcome:" + u.ID

	// best effort; registration never fails because mail could not queue
	if _, err := h.mail.Create(ctx, job.CreateRequest{
		Type:           string(jobs.TypeWelcome),
		Payload:        payload,
		IdempotencyKey: &key,
		UserID:         &u.ID,
	}); err != nil {
		slog.Default().ErrorContext(ctx, "welcome mail enqueue failed", "user_id", u.ID, "error", err)
	}
}
