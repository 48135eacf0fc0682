package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/inkhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func etagRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/payload", func(c *gin.Context) {
		handlers.RespondJSONWithETag(c, http.StatusOK, gin.H{"value": 42})
	})
	return r
}

func TestETagConditionalGet(t *testing.T) {
	r := etagRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}

	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `"`) || !strings.HasSuffix(etag, `"`) {
		t.Fatalf("ETag = %q, want a quoted strong validator", etag)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"exact match", etag, http.StatusNotModified},
		{"weak form matches", "W/" + etag, http.StatusNotModified},
		{"star matches", "*", http.StatusNotModified},
		{"match in a list", `"stale", ` + etag, http.StatusNotModified},
		{"miss", `"stale"`, http.StatusOK},
		{"no header", "", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/payload", nil)
		if tc.header != "" {
			req.Header.Set("If-None-Match", tc.header)
		}

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: code = %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}
