package verification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/modules/verification"
	redispkg "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
	"github.com/gatherly/web/internal/upstream/stub"
)

const (
	tokenCookie  = "accessToken"
	clientCookie = "gatherly_client"
)

type fixture struct {
	engine   *gin.Engine
	sessions *session.Store
	backend  *stub.Server
	redis    *miniredis.Miniredis
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := stub.New(tokenCookie)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	api := upstream.New(srv.URL, 5*time.Second, tokenCookie)
	sessions := session.NewStore(session.NewMemoryPersister(), api.CurrentUser, 5*time.Minute)

	user, cookies, err := api.Register(context.Background(), "Ada", "ada@example.com", "correct-horse", "attendee")
	require.NoError(t, err)
	require.NoError(t, sessions.SetUser(context.Background(), "browser-1", user))
	var token string
	for _, c := range cookies {
		if c.Name == tokenCookie {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	e := gin.New()
	e.Use(middleware.ClientKey(clientCookie, tokenCookie, false))
	verification.NewHandler(api, sessions, redispkg.Wrap(rdb), zap.NewNop()).RegisterRoutes(e.Group("/api"))
	return &fixture{engine: e, sessions: sessions, backend: backend, redis: mr, token: token}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.AddCookie(&http.Cookie{Name: clientCookie, Value: "browser-1"})
	if f.token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: f.token})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestSendAppliesCooldown(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/email/send", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/auth/email/send", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "wait")

	// The cooldown lapses and sending works again.
	f.redis.FastForward(verification.ResendCooldown + time.Second)
	w = f.do(http.MethodPost, "/api/auth/email/send", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.token = ""

	w := f.do(http.MethodPost, "/api/auth/email/send", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyMarksSessionVerified(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/email/send", "")
	require.Equal(t, http.StatusOK, w.Code)
	otp, found := f.backend.PeekOTP("ada@example.com")
	require.True(t, found)

	w = f.do(http.MethodPost, "/api/auth/email/verify", `{"otp":"`+otp+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	sess, err := f.sessions.Get(context.Background(), "browser-1")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.True(t, sess.User.IsEmailVerified)
}

func TestVerifyWrongCodeLeavesSessionUnverified(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/email/send", "")
	require.Equal(t, http.StatusOK, w.Code)
	otp, _ := f.backend.PeekOTP("ada@example.com")
	wrong := "000000"
	if otp == wrong {
		wrong = "000001"
	}

	w = f.do(http.MethodPost, "/api/auth/email/verify", `{"otp":"`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sess, err := f.sessions.Get(context.Background(), "browser-1")
	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.False(t, sess.User.IsEmailVerified)
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/email/verify", `{"otp":"12ab56"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
