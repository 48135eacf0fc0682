package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/domain/user"
	inkhttp "github.com/geocoder89/inkhub/internal/http"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/geocoder89/inkhub/internal/sessions"
	"github.com/gin-gonic/gin"
)

func pageConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "pages-secret",
		SessionTTLHours:    1,
		AdminSessionMaxMin: 120,
		AdminPathPrefixes:  []string{"/admin"},
		DemoPathPrefixes:   []string{"/image-generator"},
		LoginPath:          "/auth/login",
		DemoLoginPath:      "/login",
		DemoEmail:          "demo@example.com",
		DemoPassword:       "demo-pass",
	}
}

// newPageRouter builds the full router without backing stores; the page
// and guard routes never touch the database.
func newPageRouter(cfg config.Config) (*gin.Engine, *auth.Manager) {
	gin.SetMode(gin.TestMode)

	mgr := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL(), cfg.AdminSessionMax())

	r := inkhttp.NewRouter(inkhttp.Deps{
		Cfg:      cfg,
		JWT:      mgr,
		Sessions: sessions.NewMemoryStore(),
	})

	return r, mgr
}

func sessionFor(t *testing.T, mgr *auth.Manager, role user.Role) string {
	t.Helper()

	token, _, err := mgr.IssueSession(user.User{
		ID:       "11111111-1111-1111-1111-111111111111",
		Email:    "someone@example.com",
		Username: "someone",
		Role:     role,
		Status:   user.StatusActive,
	})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

func get(r *gin.Engine, path, sessionToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: middlewares.SessionCookie, Value: sessionToken})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newPageRouter(pageConfig())

	if w := get(r, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	if w := get(r, "/readyz", ""); w.Code != http.StatusOK {
		t.Fatalf("readyz: %d", w.Code)
	}
}

func TestAdminPageRedirectsAnonymous(t *testing.T) {
	r, _ := newPageRouter(pageConfig())

	w := get(r, "/admin", "")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("code = %d, want 307", w.Code)
	}

	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/auth/login?") {
		t.Fatalf("Location = %q", loc)
	}
	if !strings.Contains(loc, "callbackUrl=%2Fadmin") {
		t.Errorf("callbackUrl missing in %q", loc)
	}
	if !strings.Contains(loc, "message=Please+login+to+access+admin+area") {
		t.Errorf("message missing in %q", loc)
	}

	// sub-paths under the prefix are guarded the same way
	w = get(r, "/admin/articles", "")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("sub-path code = %d, want 307", w.Code)
	}
	loc = w.Header().Get("Location")
	if !strings.Contains(loc, "callbackUrl=%2Fadmin%2Farticles") {
		t.Errorf("sub-path callbackUrl missing in %q", loc)
	}
	if !strings.Contains(loc, "message=Please+login+to+access+admin+area") {
		t.Errorf("sub-path message missing in %q", loc)
	}
}

func TestAdminPageRejectsInsufficientRole(t *testing.T) {
	r, mgr := newPageRouter(pageConfig())

	for _, role := range []user.Role{user.RoleUser, user.RoleEditor} {
		w := get(r, "/admin", sessionFor(t, mgr, role))
		if w.Code != http.StatusTemporaryRedirect {
			t.Fatalf("%s: code = %d, want 307", role, w.Code)
		}
		if loc := w.Header().Get("Location"); !strings.Contains(loc, "message=Admin+access+required") {
			t.Errorf("%s: Location = %q", role, loc)
		}
	}
}

func TestAdminPageAllowsAdmin(t *testing.T) {
	r, mgr := newPageRouter(pageConfig())

	token := sessionFor(t, mgr, user.RoleAdmin)

	w := get(r, "/admin", token)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}

	w = get(r, "/admin/articles", token)
	if w.Code != http.StatusOK {
		t.Fatalf("sub-path code = %d, want 200", w.Code)
	}
}

func TestAdminPageSessionCeiling(t *testing.T) {
	cfg := pageConfig()
	cfg.AdminSessionMaxMin = 0 // any elapsed time exceeds the ceiling
	r, mgr := newPageRouter(cfg)

	w := get(r, "/admin", sessionFor(t, mgr, user.RoleAdmin))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("code = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "message=Admin+session+expired") {
		t.Errorf("Location = %q", loc)
	}

	// the dead cookie is cleared on the way out
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestLoginPageBouncesAuthenticated(t *testing.T) {
	r, mgr := newPageRouter(pageConfig())

	w := get(r, "/auth/login?callbackUrl=%2Fadmin", sessionFor(t, mgr, user.RoleAdmin))
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("code = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}

	// anonymous callers see the form
	if w := get(r, "/auth/login", ""); w.Code != http.StatusOK {
		t.Fatalf("anonymous login page: %d", w.Code)
	}
}

func TestDemoSurface(t *testing.T) {
	r, _ := newPageRouter(pageConfig())

	// no sentinel cookie: bounced to the demo login
	w := get(r, "/image-generator", "")
	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("code = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("Location = %q, want /login", loc)
	}

	postLogin := func(email, password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login",
			strings.NewReader("email="+email+"&password="+password))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w = postLogin("demo@example.com", "nope")
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "message=") {
		t.Errorf("bad credentials should carry a message, got %q", loc)
	}

	w = postLogin("demo@example.com", "demo-pass")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("demo login: %d, want 303", w.Code)
	}

	var sentinel *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.DemoCookie {
			sentinel = c
		}
	}
	if sentinel == nil || sentinel.Value != "true" {
		t.Fatalf("sentinel cookie not set: %v", sentinel)
	}

	req := httptest.NewRequest(http.MethodGet, "/image-generator", nil)
	req.AddCookie(sentinel)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("demo page with sentinel: %d", w2.Code)
	}

	// holding the sentinel, the login page bounces back to the surface
	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(sentinel)
	w2 = httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusTemporaryRedirect {
		t.Fatalf("login page with sentinel: %d, want 307", w2.Code)
	}
	if loc := w2.Header().Get("Location"); loc != "/image-generator" {
		t.Errorf("Location = %q, want /image-generator", loc)
	}
}
