package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/modules/account"
	"github.com/gatherly/web/internal/modules/dashboard"
	"github.com/gatherly/web/internal/modules/events"
	"github.com/gatherly/web/internal/modules/pages"
	"github.com/gatherly/web/internal/modules/passwordreset"
	"github.com/gatherly/web/internal/modules/payments"
	"github.com/gatherly/web/internal/modules/verification"
	pkgredis "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router

	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	// Versioned-less API, mirroring the backend's path layout so the client
	// bundle can talk to either directly.
	api := r.Group("/api")
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:     15 * time.Second,
		Disable: a.cfg.IsDev(),
		SkipPaths: []string{
			"/api/users*",
			"/api/auth*",
			"/api/session*",
			"/api/bookings*",
			"/api/payments*",
		},
	}))

	api.GET("/healthz", func(c *gin.Context) {
		response.OK(c, "", gin.H{"status": "ok"})
	})

	account.NewHandler(a.api, a.sessions, a.logger).RegisterRoutes(api)
	verification.NewHandler(a.api, a.sessions, rc, a.logger).RegisterRoutes(api)
	passwordreset.NewHandler(a.api, rc, a.logger).RegisterRoutes(api)
	events.NewHandler(a.api, a.sessions, rc.Raw(), a.logger).RegisterRoutes(api)
	dashboard.NewHandler(a.api, a.sessions, a.logger).RegisterRoutes(api)
	payments.NewHandler(a.api, a.sessions, a.cfg.Checkout).RegisterRoutes(api)

	// Page navigations: guard first, then the SPA shell.
	pages.NewHandler(a.cfg).RegisterRoutes(r, middleware.Guard())
}
