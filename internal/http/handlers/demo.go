package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/geocoder89/inkhub/internal/config"
	"github.com/geocoder89/inkhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// DemoHandler runs the shared demo login. It issues no identity, only
// the sentinel cookie the demo guard looks for.
type DemoHandler struct {
	cfg config.Config
}

func NewDemoHandler(cfg config.Config) *DemoHandler {
	return &DemoHandler{cfg: cfg}
}

// POST /login (form encoded, posted by the demo login page)
func (h *DemoHandler) Login(ctx *gin.Context) {
	email := ctx.PostForm("email")
	password := ctx.PostForm("password")

	if h.cfg.DemoEmail == "" || h.cfg.DemoPassword == "" {
		ctx.Redirect(http.StatusSeeOther, h.cfg.DemoLoginPath+"?message=Demo+access+is+not+configured")
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(h.cfg.DemoEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.DemoPassword)) == 1

	if !emailOK || !passOK {
		ctx.Redirect(http.StatusSeeOther, h.cfg.DemoLoginPath+"?message=Invalid+demo+credentials")
		return
	}

	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.DemoCookie, "true", 0, "/", "", secure, true)

	dest := "/image-generator"
	if len(h.cfg.DemoPathPrefixes) > 0 {
		dest = h.cfg.DemoPathPrefixes[0]
	}

	ctx.Redirect(http.StatusSeeOther, dest)
}

// POST /logout (demo surface)
func (h *DemoHandler) Logout(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetCookie(middlewares.DemoCookie, "", -1, "/", "", secure, true)
	ctx.Redirect(http.StatusSeeOther, h.cfg.DemoLoginPath)
}
