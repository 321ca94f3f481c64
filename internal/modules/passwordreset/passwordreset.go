// Package passwordreset relays the three step reset wizard: request a code by
// email, exchange the code for a reset token, then set the new password with
// that token as a bearer credential.
package passwordreset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	redispkg "github.com/gatherly/web/internal/pkg/redis"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/upstream"
)

const resendCooldown = 15 * time.Second

type SendDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyDTO struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type ResetDTO struct {
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type Handler struct {
	api    *upstream.Client
	rdb    *redispkg.Client
	logger *zap.Logger
}

func NewHandler(api *upstream.Client, rdb *redispkg.Client, logger *zap.Logger) *Handler {
	return &Handler{api: api, rdb: rdb, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth/password")
	g.POST("/send", h.send)
	g.POST("/verify", h.verify)
	g.POST("/reset", h.reset)
}

func (h *Handler) send(c *gin.Context) {
	var dto SendDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "A valid email is required")
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("gatherly:reset_cooldown:%s", strings.ToLower(dto.Email))
	armed, left, err := h.rdb.Cooldown(ctx, key, resendCooldown)
	if err != nil {
		h.logger.Warn("reset cooldown check failed", zap.Error(err))
	} else if !armed {
		secs := int(math.Ceil(left.Seconds()))
		response.TooManyRequests(c, fmt.Sprintf("Please wait %d seconds before requesting another code", secs))
		return
	}

	if err := h.api.SendPasswordReset(ctx, dto.Email); err != nil {
		if delErr := h.rdb.Del(ctx, key); delErr != nil {
			h.logger.Warn("release reset cooldown", zap.Error(delErr))
		}
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "If the account exists, a code has been sent", nil)
}

func (h *Handler) verify(c *gin.Context) {
	var dto VerifyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "Email and a 6 digit code are required")
		return
	}

	resetToken, err := h.api.VerifyPasswordReset(c.Request.Context(), dto.Email, dto.OTP)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "Code verified", gin.H{"resetToken": resetToken})
}

func (h *Handler) reset(c *gin.Context) {
	var dto ResetDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "A password of at least 8 characters is required")
		return
	}

	bearer := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
	if bearer == "" {
		response.Unauthorized(c, "Reset token missing, start over from the email step")
		return
	}

	if err := h.api.ResetPassword(c.Request.Context(), bearer, dto.NewPassword); err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "Password updated, please login", nil)
}
