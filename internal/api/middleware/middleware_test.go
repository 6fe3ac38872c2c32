package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func serve(r http.Handler, remote, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerClient(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.1:1000", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.1:1000", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "127.0.0.1:1000", "").Code)

	// Another client has its own bucket
	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.2:1000", "").Code)
}

func TestGlobalRateLimit(t *testing.T) {
	r := newRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.1:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "127.0.0.2:1", "").Code)
}

func TestLoopbackOnly(t *testing.T) {
	r := newRouter(LoopbackOnly())

	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.1:5000", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "[::1]:5000", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "10.0.0.5:5000", "").Code)
}

func TestCORSAllowsLocalOrigins(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))

	w := serve(r, "127.0.0.1:1", "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, "127.0.0.1:1", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSWithOrigins(t *testing.T) {
	cfg := DefaultCORSConfig().WithOrigins([]string{"http://tool.local"})
	assert.Equal(t, []string{"http://tool.local"}, cfg.AllowOrigins)
	assert.Equal(t, DefaultCORSConfig().AllowOrigins, DefaultCORSConfig().WithOrigins(nil).AllowOrigins)
}
