package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie the session token travels in for browser
// clients; API clients may use a Bearer header instead.
const SessionCookie = "session"

// Keep these interfaces small so tests can fake them easily.
type SessionVerifier interface {
	VerifySession(token string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, claims *auth.Claims) (bool, error)
}

type AuthMiddleware struct {
	jwt     SessionVerifier
	revoked RevocationChecker
}

func NewAuthMiddleware(jwt SessionVerifier, revoked RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, revoked: revoked}
}

// ExtractToken pulls the raw session token from the cookie or, failing
// that, the Authorization header. Empty string means anonymous.
func ExtractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	}

	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Resolve verifies a presented token end to end: signature, expiry, shape
// and revocation. It does not touch the response.
func (m *AuthMiddleware) Resolve(c *gin.Context) (*auth.Claims, error) {
	raw := ExtractToken(c)
	if raw == "" {
		return nil, auth.ErrInvalidToken
	}

	claims, err := m.jwt.VerifySession(raw)
	if err != nil {
		return nil, err
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(c.Request.Context(), claims)
		if err != nil {
			// revocation store down: fail closed on the deny decision
			return nil, err
		}
		if revoked {
			return nil, auth.ErrInvalidToken
		}
	}

	return claims, nil
}

// RequireAuth guards JSON API routes. Missing, invalid, expired and
// revoked tokens all collapse into one 401 body.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := m.Resolve(c)
		if err != nil {
			abortUnauthorized(c, "Missing or invalid session token")
			return
		}

		// Stash useful bits of identity on the context
		c.Set(ctxClaimsKey, claims)
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxEmailKey, claims.Email)
		c.Set(ctxRoleKey, claims.Role)

		c.Next()
	}
}

// OptionalAuth resolves a session when one is presented but never
// blocks the request. Public read endpoints use it so editors see
// drafts while anonymous callers fall through as anonymous.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := m.Resolve(c); err == nil {
			c.Set(ctxClaimsKey, claims)
			c.Set(ctxUserIDKey, claims.UserID)
			c.Set(ctxEmailKey, claims.Email)
			c.Set(ctxRoleKey, claims.Role)
		}

		c.Next()
	}
}

// Optional helpers so handlers don’t need to know the magic keys.

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
