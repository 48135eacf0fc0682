package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fakeVerifier struct {
	// token -> claims; any other token fails verification
	sessions map[string]*auth.Claims
}

func (f *fakeVerifier) VerifySession(token string) (*auth.Claims, error) {
	if c, ok := f.sessions[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeRevocations struct {
	revoked map[string]bool // by jti
}

func (f *fakeRevocations) IsRevoked(_ context.Context, claims *auth.Claims) (bool, error) {
	return f.revoked[claims.JTI], nil
}

type fakeElevation struct {
	expired bool
}

func (f *fakeElevation) ElevatedSessionExpired(_ *auth.Claims, _ time.Time) bool {
	return f.expired
}

func testClaims(userID, role, jti string) *auth.Claims {
	now := time.Now()
	return &auth.Claims{
		UserID: userID,
		Email:  userID + "@example.com",
		Role:   role,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func guardRouter(verifier *fakeVerifier, rev *fakeRevocations, elev *fakeElevation) *gin.Engine {
	gin.SetMode(gin.TestMode)

	authMW := NewAuthMiddleware(verifier, rev)
	guard := NewPageGuard(authMW, elev, nil, "/auth/login", "/login")

	r := gin.New()

	admin := r.Group("/admin", guard.AdminPages())
	admin.GET("/dashboard", func(c *gin.Context) {
		c.String(http.StatusOK, "dashboard")
	})

	demo := r.Group("/image-generator", guard.DemoPages())
	demo.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "demo")
	})

	r.GET("/auth/login", guard.RedirectIfAuthenticated("/admin"), func(c *gin.Context) {
		c.String(http.StatusOK, "login page")
	})

	return r
}

func loginRedirect(t *testing.T, w *httptest.ResponseRecorder) url.Values {
	t.Helper()

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location header: %v", err)
	}
	if loc.Path != "/auth/login" {
		t.Fatalf("expected redirect to /auth/login, got %s", loc.Path)
	}

	return loc.Query()
}

func TestAdminGuard_Unauthenticated(t *testing.T) {
	r := guardRouter(&fakeVerifier{}, &fakeRevocations{}, &fakeElevation{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard?tab=posts", nil)
	r.ServeHTTP(w, req)

	q := loginRedirect(t, w)

	if got := q.Get("callbackUrl"); got != "/admin/dashboard?tab=posts" {
		t.Errorf("callbackUrl = %q, want original destination", got)
	}
	if got := q.Get("message"); got != MsgLoginRequired {
		t.Errorf("message = %q, want %q", got, MsgLoginRequired)
	}
}

func TestAdminGuard_GarbageToken(t *testing.T) {
	r := guardRouter(&fakeVerifier{}, &fakeRevocations{}, &fakeElevation{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-token"})
	r.ServeHTTP(w, req)

	q := loginRedirect(t, w)
	if got := q.Get("message"); got != MsgLoginRequired {
		t.Errorf("message = %q, want %q", got, MsgLoginRequired)
	}
}

func TestAdminGuard_InsufficientRole(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"user-token":   testClaims("u1", "USER", "j1"),
		"editor-token": testClaims("u2", "EDITOR", "j2"),
	}}
	r := guardRouter(verifier, &fakeRevocations{}, &fakeElevation{})

	for _, token := range []string{"user-token", "editor-token"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		r.ServeHTTP(w, req)

		q := loginRedirect(t, w)
		if got := q.Get("message"); got != MsgAdminRequired {
			t.Errorf("token %s: message = %q, want %q", token, got, MsgAdminRequired)
		}
	}
}

func TestAdminGuard_ElevatedSessionCeiling(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"admin-token": testClaims("a1", "ADMIN", "j1"),
	}}
	r := guardRouter(verifier, &fakeRevocations{}, &fakeElevation{expired: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	q := loginRedirect(t, w)
	if got := q.Get("message"); got != MsgSessionExpired {
		t.Errorf("message = %q, want %q", got, MsgSessionExpired)
	}

	// the dead session cookie must be cleared on the way out
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestAdminGuard_ValidAdmin(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"admin-token": testClaims("a1", "ADMIN", "j1"),
	}}
	r := guardRouter(verifier, &fakeRevocations{}, &fakeElevation{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAdminGuard_RevokedSession(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"admin-token": testClaims("a1", "ADMIN", "j1"),
	}}
	rev := &fakeRevocations{revoked: map[string]bool{"j1": true}}
	r := guardRouter(verifier, rev, &fakeElevation{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	q := loginRedirect(t, w)
	if got := q.Get("message"); got != MsgLoginRequired {
		t.Errorf("message = %q, want %q", got, MsgLoginRequired)
	}
}

func TestDemoGuard(t *testing.T) {
	r := guardRouter(&fakeVerifier{}, &fakeRevocations{}, &fakeElevation{})

	// without the sentinel cookie
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/image-generator", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	// with it
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/image-generator", nil)
	req.AddCookie(&http.Cookie{Name: DemoCookie, Value: "true"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestLoginPage_RedirectsAuthenticated(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"admin-token": testClaims("a1", "ADMIN", "j1"),
	}}
	r := guardRouter(verifier, &fakeRevocations{}, &fakeElevation{})

	// anonymous users see the login page
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous: expected 200, got %d", w.Code)
	}

	// a live session bounces to the callback destination
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/login?callbackUrl=%2Fadmin%2Fposts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/posts" {
		t.Errorf("Location = %q, want /admin/posts", loc)
	}

	// absolute callback URLs must not become open redirects
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/login?callbackUrl="+url.QueryEscape("https://evil.example.com"), nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/admin") {
		t.Errorf("Location = %q, open redirect not neutralized", loc)
	}
}

func TestLoginPage_ExpiredAdminCanLogInAgain(t *testing.T) {
	verifier := &fakeVerifier{sessions: map[string]*auth.Claims{
		"admin-token": testClaims("a1", "ADMIN", "j1"),
	}}
	r := guardRouter(verifier, &fakeRevocations{}, &fakeElevation{expired: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "admin-token"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("aged-out admin must reach the login page, got %d", w.Code)
	}
}
