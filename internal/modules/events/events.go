// Package events fronts the public event catalogue and organizer publishing.
// Anonymous listing traffic is cached in redis; creating an event purges that
// cache so new listings show up immediately.
package events

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
)

type Handler struct {
	api      *upstream.Client
	sessions *session.Store
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewHandler(api *upstream.Client, sessions *session.Store, rdb *redis.Client, logger *zap.Logger) *Handler {
	return &Handler{api: api, sessions: sessions, rdb: rdb, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/events")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", h.create)
}

// parseQuery unpacks the pipe packed "query|sort|category" search parameter
// the explore page sends.
func parseQuery(raw string) upstream.EventQuery {
	var q upstream.EventQuery
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) > 0 {
		q.Search = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		q.Sort = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		q.Category = strings.TrimSpace(parts[2])
	}
	return q
}

func (h *Handler) list(c *gin.Context) {
	events, err := h.api.ListEvents(c.Request.Context(), parseQuery(c.Query("search")))
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "", events)
}

func (h *Handler) get(c *gin.Context) {
	event, err := h.api.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "", event)
}

func (h *Handler) create(c *gin.Context) {
	var dto upstream.CreateEventInput
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "Invalid event details")
		return
	}

	ctx := c.Request.Context()
	if sess, err := h.sessions.Get(ctx, middleware.ClientKeyFrom(c)); err == nil &&
		sess.IsLoggedIn && sess.User != nil && !sess.User.IsEmailVerified {
		response.Forbidden(c, "Please verify your email to publish events")
		return
	}

	event, err := h.api.CreateEvent(ctx, middleware.AccessTokenFrom(c), dto)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}

	if h.rdb != nil {
		if _, err := middleware.PurgeHTTPCache(ctx, h.rdb); err != nil {
			h.logger.Warn("purge listing cache", zap.Error(err))
		}
	}
	response.Created(c, "Event created", event)
}
