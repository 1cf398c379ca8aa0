package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bodyRouter(body string) *gin.Engine {
	r := gin.New()
	r.Use(Brotli())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, body) })
	return r
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("<p>question</p>", 500)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")

	w := serve(bodyRouter(body), req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(body))

	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestBrotliLeavesSmallBodiesAlone(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "br")

	w := serve(bodyRouter("ok"), req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())
}

func TestBrotliNeedsClientSupport(t *testing.T) {
	body := strings.Repeat("x", 4096)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	w := serve(bodyRouter(body), req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	r := gin.New()
	r.POST("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/a", Immutable(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/b", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Contains(t, serve(r, httptest.NewRequest(http.MethodGet, "/a", nil)).Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, "no-store", serve(r, httptest.NewRequest(http.MethodGet, "/b", nil)).Header().Get("Cache-Control"))
}

func TestRateLimiterRefillsPerInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 1, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.take("10.0.0.1|grade5")
	assert.True(t, ok)
	ok, retry := rl.take("10.0.0.1|grade5")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = rl.take("10.0.0.1|grade6")
	assert.True(t, ok, "folders have separate buckets")

	now = now.Add(40 * time.Second)
	_, retry = rl.take("10.0.0.1|grade5")
	assert.Equal(t, 20*time.Second, retry)

	now = now.Add(20 * time.Second)
	ok, _ = rl.take("10.0.0.1|grade5")
	assert.True(t, ok)

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.buckets)
}
