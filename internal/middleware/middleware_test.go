package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/web/internal/middleware"
)

const (
	tokenCookie  = "accessToken"
	clientCookie = "gatherly_client"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(middleware.ClientKey(clientCookie, tokenCookie, false))
	return e
}

func doReq(e *gin.Engine, method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestClientKeyAssignsCookie(t *testing.T) {
	e := newEngine()
	e.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.ClientKeyFrom(c))
	})

	w := doReq(e, http.MethodGet, "/x")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())

	var set bool
	for _, c := range w.Result().Cookies() {
		if c.Name == clientCookie {
			set = true
			assert.Equal(t, w.Body.String(), c.Value)
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, set)
}

func TestClientKeyReusesExistingCookie(t *testing.T) {
	e := newEngine()
	e.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.ClientKeyFrom(c))
	})

	w := doReq(e, http.MethodGet, "/x", &http.Cookie{Name: clientCookie, Value: "stable-key"})
	assert.Equal(t, "stable-key", w.Body.String())
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, clientCookie, c.Name)
	}
}

func TestAccessTokenFromCookie(t *testing.T) {
	e := newEngine()
	e.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.AccessTokenFrom(c))
	})

	w := doReq(e, http.MethodGet, "/x", &http.Cookie{Name: tokenCookie, Value: "tok-123"})
	assert.Equal(t, "tok-123", w.Body.String())

	w = doReq(e, http.MethodGet, "/x")
	assert.Empty(t, w.Body.String())
}

func TestGuardRedirects(t *testing.T) {
	e := newEngine()
	e.Use(middleware.Guard())
	for _, p := range []string{"/login", "/dashboard", "/verify-email", "/explore/events"} {
		p := p
		e.GET(p, func(c *gin.Context) { c.Status(http.StatusOK) })
	}

	authed := &http.Cookie{Name: tokenCookie, Value: "tok"}

	w := doReq(e, http.MethodGet, "/login", authed)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = doReq(e, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = doReq(e, http.MethodGet, "/verify-email")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)

	w = doReq(e, http.MethodGet, "/explore/events")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doReq(e, http.MethodGet, "/dashboard", authed)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitBlocksAnonymousBursts(t *testing.T) {
	e := newEngine()
	e.Use(middleware.RateLimit(newRedis(t)))
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	var limited bool
	for i := 0; i < 60; i++ {
		w := doReq(e, http.MethodGet, "/x")
		if w.Code == http.StatusTooManyRequests {
			limited = true
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
			break
		}
	}
	assert.True(t, limited, "expected the burst to hit the limit")
}

func TestRateLimitSkipsAuthenticated(t *testing.T) {
	e := newEngine()
	e.Use(middleware.RateLimit(newRedis(t)))
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	authed := &http.Cookie{Name: tokenCookie, Value: "tok"}
	for i := 0; i < 60; i++ {
		w := doReq(e, http.MethodGet, "/x", authed)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIdempotenceBlocksDuplicatePost(t *testing.T) {
	e := newEngine()
	e.Use(middleware.Idempotence(newRedis(t)))
	e.POST("/api/payments/order", func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/order", strings.NewReader(`{"eventId":"e1"}`))
		req.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, post().Code)
	dup := post()
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Contains(t, dup.Body.String(), "Duplicate request")
}

func TestIdempotenceSkipsAuthEndpoints(t *testing.T) {
	e := newEngine()
	e.Use(middleware.Idempotence(newRedis(t)))
	e.POST("/api/users/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"a@b.c"}`))
		req.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, login().Code)
	assert.Equal(t, http.StatusOK, login().Code)
}

func TestIdempotenceSkipsOTPSendEndpoints(t *testing.T) {
	e := newEngine()
	e.Use(middleware.Idempotence(newRedis(t)))
	e.POST("/api/auth/email/send", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.POST("/api/auth/password/send", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"email":"a@b.c"}`))
		req.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		return w
	}

	// Resends are governed by the 15 second cooldown, never by the
	// duplicate window.
	for _, path := range []string{"/api/auth/email/send", "/api/auth/password/send"} {
		assert.Equal(t, http.StatusOK, send(path).Code, path)
		assert.Equal(t, http.StatusOK, send(path).Code, path)
	}
}

func TestHTTPCacheServesSecondAnonymousHit(t *testing.T) {
	var calls atomic.Int64
	e := newEngine()
	e.Use(middleware.HTTPCache(newRedis(t), middleware.HTTPCacheOptions{}))
	e.GET("/api/events", func(c *gin.Context) {
		calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"message": "", "data": []string{"a"}})
	})

	first := doReq(e, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, first.Code)
	second := doReq(e, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "hit", second.Header().Get("x-gatherly-cache"))
	assert.Equal(t, int64(1), calls.Load())
}

func TestHTTPCacheSkipsAuthenticated(t *testing.T) {
	var calls atomic.Int64
	e := newEngine()
	e.Use(middleware.HTTPCache(newRedis(t), middleware.HTTPCacheOptions{}))
	e.GET("/api/events", func(c *gin.Context) {
		calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})

	authed := &http.Cookie{Name: tokenCookie, Value: "tok"}
	doReq(e, http.MethodGet, "/api/events", authed)
	doReq(e, http.MethodGet, "/api/events", authed)
	assert.Equal(t, int64(2), calls.Load())
}
