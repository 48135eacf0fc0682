package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// Page surfaces render server-side HTML with inline styles.
	pageCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'"
)

func SecurityHeaders(pagePrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")

		csp := defaultCSP
		for _, prefix := range pagePrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				csp = pageCSP
				break
			}
		}
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}
