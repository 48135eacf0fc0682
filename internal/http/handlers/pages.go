package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PagesHandler serves the small server-rendered surfaces: the login page
// the guard redirects to, the admin shell and the demo pages. The real
// admin UI is a separate frontend; these pages exist so the guarded
// routes resolve to something visible.

var loginPageTmpl = template.Must(template.New("login").Parse(`<!doctype html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Message}}<p class="notice">{{.Message}}</p>{{end}}
<form method="post" action="/api/v1/auth/login">
  <input type="hidden" name="callbackUrl" value="{{.CallbackURL}}">
  <label>Email <input type="email" name="email" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Sign in</button>
</form>
</body>
</html>`))

var demoLoginPageTmpl = template.Must(template.New("demo-login").Parse(`<!doctype html>
<html>
<head><title>Demo access</title></head>
<body>
<h1>Demo access</h1>
{{if .Message}}<p class="notice">{{.Message}}</p>{{end}}
<form method="post" action="/login">
  <label>Email <input type="email" name="email" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Enter</button>
</form>
</body>
</html>`))

type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func renderHTML(ctx *gin.Context, status int, tmpl *template.Template, data any) {
	ctx.Status(status)
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	_ = tmpl.Execute(ctx.Writer, data)
}

// GET /auth/login
func (h *PagesHandler) LoginPage(ctx *gin.Context) {
	renderHTML(ctx, http.StatusOK, loginPageTmpl, gin.H{
		"Message":     ctx.Query("message"),
		"CallbackURL": ctx.Query("callbackUrl"),
	})
}

// GET /admin and its sub-paths serve the shell page behind the admin guard.
func (h *PagesHandler) AdminHome(ctx *gin.Context) {
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.String(http.StatusOK, `<!doctype html><html><head><title>Admin</title></head>`+
		`<body><h1>Admin</h1><p>Use the JSON API under /api/v1/admin.</p></body></html>`)
}

// GET /login renders the demo surface login form.
func (h *PagesHandler) DemoLoginPage(ctx *gin.Context) {
	renderHTML(ctx, http.StatusOK, demoLoginPageTmpl, gin.H{
		"Message": ctx.Query("message"),
	})
}

// GET /image-generator sits behind the demo sentinel cookie.
func (h *PagesHandler) DemoPage(ctx *gin.Context) {
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.String(http.StatusOK, `<!doctype html><html><head><title>Image generator</title></head>`+
		`<body><h1>Image generator</h1><p>Demo surface.</p></body></html>`)
}
