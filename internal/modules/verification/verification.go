// Package verification drives the email OTP flow: sending codes with a resend
// cooldown and confirming them against the backend.
package verification

import (
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	redispkg "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
)

// ResendCooldown matches the resend timer shown on the verify page.
const ResendCooldown = 15 * time.Second

type VerifyDTO struct {
	OTP string `json:"otp" binding:"required,len=6,numeric"`
}

type Handler struct {
	api      *upstream.Client
	sessions *session.Store
	rdb      *redispkg.Client
	logger   *zap.Logger
}

func NewHandler(api *upstream.Client, sessions *session.Store, rdb *redispkg.Client, logger *zap.Logger) *Handler {
	return &Handler{api: api, sessions: sessions, rdb: rdb, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/email")
	g.POST("/send", h.send)
	g.POST("/verify", h.verify)
}

func (h *Handler) send(c *gin.Context) {
	ctx := c.Request.Context()
	token := middleware.AccessTokenFrom(c)
	if token == "" {
		response.Unauthorized(c, "")
		return
	}

	key := fmt.Sprintf("gatherly:otp_cooldown:%s", middleware.ClientKeyFrom(c))
	armed, left, err := h.rdb.Cooldown(ctx, key, ResendCooldown)
	if err != nil {
		h.logger.Warn("otp cooldown check failed", zap.Error(err))
	} else if !armed {
		secs := int(math.Ceil(left.Seconds()))
		response.TooManyRequests(c, fmt.Sprintf("Please wait %d seconds before requesting another code", secs))
		return
	}

	if err := h.api.SendEmailOTP(ctx, token); err != nil {
		// Release the cooldown so the user can retry right away.
		if delErr := h.rdb.Del(ctx, key); delErr != nil {
			h.logger.Warn("release otp cooldown", zap.Error(delErr))
		}
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "Verification code sent", nil)
}

func (h *Handler) verify(c *gin.Context) {
	var dto VerifyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "A 6 digit code is required")
		return
	}

	ctx := c.Request.Context()
	if err := h.api.VerifyEmailOTP(ctx, middleware.AccessTokenFrom(c), dto.OTP); err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}

	if err := h.sessions.MarkEmailVerified(ctx, middleware.ClientKeyFrom(c)); err != nil {
		h.logger.Warn("mark session verified", zap.Error(err))
	}
	response.OK(c, "Email verified", nil)
}
