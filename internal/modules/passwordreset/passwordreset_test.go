package passwordreset_test

import (
	"context"
	"encoding/json"
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

	"github.com/gatherly/web/internal/modules/passwordreset"
	redispkg "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/upstream"
	"github.com/gatherly/web/internal/upstream/stub"
)

const tokenCookie = "accessToken"

type fixture struct {
	engine  *gin.Engine
	api     *upstream.Client
	backend *stub.Server
	redis   *miniredis.Miniredis
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
	_, _, err := api.Register(context.Background(), "Ada", "ada@example.com", "correct-horse", "attendee")
	require.NoError(t, err)

	e := gin.New()
	passwordreset.NewHandler(api, redispkg.Wrap(rdb), zap.NewNop()).RegisterRoutes(e.Group("/api"))
	return &fixture{engine: e, api: api, backend: backend, redis: mr}
}

func (f *fixture) post(path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestFullResetFlow(t *testing.T) {
	f := newFixture(t)

	w := f.post("/api/auth/password/send", `{"email":"ada@example.com"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	otp, found := f.backend.PeekOTP("ada@example.com")
	require.True(t, found)

	w = f.post("/api/auth/password/verify", `{"email":"ada@example.com","otp":"`+otp+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		Data struct {
			ResetToken string `json:"resetToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.ResetToken)

	w = f.post("/api/auth/password/reset", `{"newPassword":"brand-new-pass"}`,
		map[string]string{"Authorization": "Bearer " + payload.Data.ResetToken})
	require.Equal(t, http.StatusOK, w.Code)

	_, _, err := f.api.Login(context.Background(), "ada@example.com", "brand-new-pass")
	assert.NoError(t, err)
}

func TestSendCooldown(t *testing.T) {
	f := newFixture(t)

	w := f.post("/api/auth/password/send", `{"email":"ada@example.com"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post("/api/auth/password/send", `{"email":"ada@example.com"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	f.redis.FastForward(16 * time.Second)
	w = f.post("/api/auth/password/send", `{"email":"ada@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendUnknownEmailStillSucceeds(t *testing.T) {
	f := newFixture(t)

	w := f.post("/api/auth/password/send", `{"email":"nobody@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetWithoutBearer(t *testing.T) {
	f := newFixture(t)

	w := f.post("/api/auth/password/reset", `{"newPassword":"brand-new-pass"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyWrongCode(t *testing.T) {
	f := newFixture(t)

	w := f.post("/api/auth/password/send", `{"email":"ada@example.com"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	otp, _ := f.backend.PeekOTP("ada@example.com")
	wrong := "000000"
	if otp == wrong {
		wrong = "999999"
	}

	w = f.post("/api/auth/password/verify", `{"email":"ada@example.com","otp":"`+wrong+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
