package mw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.GET("/x", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/fail", Cache(cache.New(time.Minute, time.Minute), time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	first := do(r, "/x?b=2&a=1")
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))
	second := do(r, "/x?a=1&b=2")
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	do(r, "/x?a=2")
	assert.Equal(t, 2, calls, "different query is a different entry")

	do(r, "/fail")
	do(r, "/fail")
	assert.Equal(t, 4, calls, "errors are not cached")
}

func TestCacheKey(t *testing.T) {
	a := httptest.NewRequest(http.MethodGet, "/api/map?steps=DONE&days=All", nil)
	b := httptest.NewRequest(http.MethodGet, "/api/map?days=All&steps=DONE", nil)
	assert.Equal(t, CacheKey(a), CacheKey(b))
	assert.Equal(t, "/api/map", CacheKey(httptest.NewRequest(http.MethodGet, "/api/map", nil)))
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2, "X-Forwarded-For"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "/x", "X-Forwarded-For", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do(r, "/x", "X-Forwarded-For", "10.0.0.1, 172.16.0.1").Code)
	limited := do(r, "/x", "X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, do(r, "/x", "X-Forwarded-For", "10.0.0.2").Code, "buckets are per client")
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := do(r, "/x")
	id := w.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, id, line["request_id"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])

	buf.Reset()
	w = do(r, "/x", HeaderRequestID, "given-id")
	assert.Equal(t, "given-id", w.Header().Get(HeaderRequestID))
}
