// Package dashboard fronts the role specific stats endpoints behind the
// dashboard pages. A 401 or 403 from the backend clears the local session so
// the next page load lands on the login screen instead of a broken dashboard.
package dashboard

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
)

type Handler struct {
	api      *upstream.Client
	sessions *session.Store
	logger   *zap.Logger
}

func NewHandler(api *upstream.Client, sessions *session.Store, logger *zap.Logger) *Handler {
	return &Handler{api: api, sessions: sessions, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/attendee", h.attendee)
	rg.GET("/users/organizer", h.organizer)
	rg.GET("/bookings", h.bookings)
	rg.GET("/bookings/:orderId", h.booking)
}

func (h *Handler) attendee(c *gin.Context) {
	stats, err := h.api.AttendeeStats(c.Request.Context(), middleware.AccessTokenFrom(c))
	if err != nil {
		h.relay(c, err)
		return
	}
	response.OK(c, "", stats)
}

func (h *Handler) organizer(c *gin.Context) {
	stats, err := h.api.OrganizerStats(c.Request.Context(), middleware.AccessTokenFrom(c))
	if err != nil {
		h.relay(c, err)
		return
	}
	response.OK(c, "", stats)
}

func (h *Handler) bookings(c *gin.Context) {
	stats, err := h.api.BookingStats(c.Request.Context(), middleware.AccessTokenFrom(c))
	if err != nil {
		h.relay(c, err)
		return
	}
	response.OK(c, "", stats)
}

func (h *Handler) booking(c *gin.Context) {
	booking, err := h.api.GetBooking(c.Request.Context(), middleware.AccessTokenFrom(c), c.Param("orderId"))
	if err != nil {
		h.relay(c, err)
		return
	}
	response.OK(c, "", booking)
}

func (h *Handler) relay(c *gin.Context, err error) {
	if upstream.IsUnauthorized(err) || upstream.IsForbidden(err) {
		if clearErr := h.sessions.Logout(c.Request.Context(), middleware.ClientKeyFrom(c)); clearErr != nil {
			h.logger.Warn("clear rejected session", zap.Error(clearErr))
		}
	}
	status, msg := upstream.StatusOf(err)
	response.Error(c, status, msg)
}
