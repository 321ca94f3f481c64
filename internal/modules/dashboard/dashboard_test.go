package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/modules/dashboard"
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
	api      *upstream.Client
	sessions *session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := stub.New(tokenCookie)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	api := upstream.New(srv.URL, 5*time.Second, tokenCookie)
	sessions := session.NewStore(session.NewMemoryPersister(), api.CurrentUser, 5*time.Minute)

	e := gin.New()
	e.Use(middleware.ClientKey(clientCookie, tokenCookie, false))
	dashboard.NewHandler(api, sessions, zap.NewNop()).RegisterRoutes(e.Group("/api"))
	return &fixture{engine: e, api: api, sessions: sessions}
}

func (f *fixture) signUp(t *testing.T, role string) string {
	t.Helper()
	_, cookies, err := f.api.Register(context.Background(), "Test User", role+"@example.com", "correct-horse", role)
	require.NoError(t, err)
	for _, c := range cookies {
		if c.Name == tokenCookie {
			return c.Value
		}
	}
	t.Fatal("no token cookie")
	return ""
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: clientCookie, Value: "browser-1"})
	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAttendeeStats(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "attendee")

	w := f.get("/api/users/attendee", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "totalBookings")
}

func TestOrganizerStatsRequiresRole(t *testing.T) {
	f := newFixture(t)
	attendeeToken := f.signUp(t, "attendee")
	organizerToken := f.signUp(t, "organizer")

	w := f.get("/api/users/organizer", organizerToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.get("/api/users/organizer", attendeeToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnauthorizedFetchClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.sessions.SetUser(ctx, "browser-1",
		&upstream.User{Email: "ada@example.com", Name: "Ada", Role: "attendee"}))

	w := f.get("/api/users/attendee", "expired-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	sess, err := f.sessions.Get(ctx, "browser-1")
	require.NoError(t, err)
	assert.False(t, sess.IsLoggedIn, "a rejected fetch must sign the browser out")
}

func TestForbiddenFetchClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.signUp(t, "attendee")
	require.NoError(t, f.sessions.SetUser(ctx, "browser-1",
		&upstream.User{Email: "attendee@example.com", Name: "Test User", Role: "attendee"}))

	w := f.get("/api/bookings", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	sess, err := f.sessions.Get(ctx, "browser-1")
	require.NoError(t, err)
	assert.False(t, sess.IsLoggedIn)
}

func TestUnreachableBackendRelaysStatusAndMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := upstream.New("http://127.0.0.1:1", 300*time.Millisecond, tokenCookie)
	sessions := session.NewStore(session.NewMemoryPersister(), api.CurrentUser, 5*time.Minute)

	e := gin.New()
	e.Use(middleware.ClientKey(clientCookie, tokenCookie, false))
	dashboard.NewHandler(api, sessions, zap.NewNop()).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/users/attendee", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: "tok"})
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream unavailable")
}

func TestBookingNotFound(t *testing.T) {
	f := newFixture(t)
	token := f.signUp(t, "attendee")

	w := f.get("/api/bookings/order_missing", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
