package middlewares

import (
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/gin-gonic/gin"
)

// Browser-facing guard messages, surfaced on the login page via the
// message query parameter.
const (
	MsgLoginRequired  = "Please login to access admin area"
	MsgAdminRequired  = "Admin access required"
	MsgSessionExpired = "Admin session expired. Please login again."
)

// ElevationChecker applies the fixed lifetime ceiling for admin sessions.
type ElevationChecker interface {
	ElevatedSessionExpired(claims *auth.Claims, now time.Time) bool
}

// PageGuard protects browser page routes. Unlike the API middleware it
// never answers JSON: every deny is a redirect to the login page carrying
// the original destination and a human-readable reason.
type PageGuard struct {
	auth      *AuthMiddleware
	elevation ElevationChecker
	prom      *observability.Prom

	loginPath     string
	demoLoginPath string

	now func() time.Time
}

func NewPageGuard(authMW *AuthMiddleware, elevation ElevationChecker, prom *observability.Prom, loginPath, demoLoginPath string) *PageGuard {
	return &PageGuard{
		auth:          authMW,
		elevation:     elevation,
		prom:          prom,
		loginPath:     loginPath,
		demoLoginPath: demoLoginPath,
		now:           time.Now,
	}
}

func (g *PageGuard) redirectToLogin(c *gin.Context, message string) {
	callback := c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		callback += "?" + q
	}

	dest := g.loginPath +
		"?callbackUrl=" + url.QueryEscape(callback) +
		"&message=" + url.QueryEscape(message)

	c.Redirect(http.StatusTemporaryRedirect, dest)
	c.Abort()
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// AdminPages is the guard for the admin surface. Decisions, in order:
// no usable session, insufficient role, elevated-session ceiling hit,
// allow. The ceiling is checked on every request, so an admin session
// dies mid-browsing the moment it ages out.
func (g *PageGuard) AdminPages() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := g.auth.Resolve(c)
		if err != nil {
			g.prom.ObserveGuard("admin_page", "redirect_login")
			g.redirectToLogin(c, MsgLoginRequired)
			return
		}

		role, ok := claims.RoleTyped()
		if !ok || !role.Satisfies(user.RoleAdmin) {
			g.prom.ObserveGuard("admin_page", "forbidden")
			g.redirectToLogin(c, MsgAdminRequired)
			return
		}

		if g.elevation.ElevatedSessionExpired(claims, g.now()) {
			g.prom.ObserveGuard("admin_page", "expired")
			clearSessionCookie(c)
			g.redirectToLogin(c, MsgSessionExpired)
			return
		}

		g.prom.ObserveGuard("admin_page", "allow")

		c.Set(ctxClaimsKey, claims)
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxEmailKey, claims.Email)
		c.Set(ctxRoleKey, claims.Role)

		c.Next()
	}
}

// DemoCookie is the sentinel for the demo surface. It carries no
// identity; the surface is gated by a shared demo login only.
const DemoCookie = "authenticated"

// DemoPages guards the demo surface with the sentinel cookie.
func (g *PageGuard) DemoPages() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, err := c.Cookie(DemoCookie); err != nil || v != "true" {
			g.prom.ObserveGuard("demo_page", "redirect_login")
			c.Redirect(http.StatusTemporaryRedirect, g.demoLoginPath)
			c.Abort()
			return
		}

		g.prom.ObserveGuard("demo_page", "allow")
		c.Next()
	}
}

// RedirectIfDemoAuthenticated keeps a visitor who already holds the
// sentinel cookie off the demo login page.
func (g *PageGuard) RedirectIfDemoAuthenticated(dest string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, err := c.Cookie(DemoCookie); err == nil && v == "true" {
			c.Redirect(http.StatusTemporaryRedirect, dest)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectIfAuthenticated keeps signed-in users off the login page: a
// live session bounces straight to the callback destination.
func (g *PageGuard) RedirectIfAuthenticated(defaultDest string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := g.auth.Resolve(c)
		if err != nil {
			c.Next()
			return
		}

		// an aged-out admin session must be allowed to log in again
		if role, ok := claims.RoleTyped(); ok && role.Satisfies(user.RoleAdmin) {
			if g.elevation.ElevatedSessionExpired(claims, g.now()) {
				clearSessionCookie(c)
				c.Next()
				return
			}
		}

		dest := c.Query("callbackUrl")
		if dest == "" || !isLocalPath(dest) {
			dest = defaultDest
		}

		c.Redirect(http.StatusTemporaryRedirect, dest)
		c.Abort()
	}
}

// isLocalPath rejects absolute URLs so callbackUrl cannot be used as an
// open redirect.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	// protocol-relative URLs start with //
	return len(p) < 2 || p[1] != '/'
}
