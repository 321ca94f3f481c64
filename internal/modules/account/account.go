// Package account fronts the backend's user endpoints: login, register,
// logout, the current-user check, and the admin user panel. Besides relaying
// requests it keeps the gateway's session store in step with every outcome.
package account

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/web/internal/middleware"
	"github.com/gatherly/web/internal/pkg/response"
	"github.com/gatherly/web/internal/session"
	"github.com/gatherly/web/internal/upstream"
)

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=attendee organizer"`
}

type Handler struct {
	api      *upstream.Client
	sessions *session.Store
	logger   *zap.Logger
}

func NewHandler(api *upstream.Client, sessions *session.Store, logger *zap.Logger) *Handler {
	return &Handler{api: api, sessions: sessions, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.sessionSnapshot)

	g := rg.Group("/users")
	g.POST("/login", h.login)
	g.POST("/register", h.register)
	g.POST("/logout", h.logout)
	g.GET("/current-user", h.currentUser)
	g.GET("", h.adminStats)
	g.DELETE("/:id", h.deleteUser)
}

// relayCookies copies the backend's Set-Cookie headers to the browser, so the
// access token cookie the guard keys on is always the backend's own.
func relayCookies(c *gin.Context, cookies []*http.Cookie) {
	for _, ck := range cookies {
		http.SetCookie(c.Writer, ck)
	}
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "Email and password are required")
		return
	}

	user, cookies, err := h.api.Login(c.Request.Context(), dto.Email, dto.Password)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	relayCookies(c, cookies)

	if err := h.sessions.SetUser(c.Request.Context(), middleware.ClientKeyFrom(c), user); err != nil {
		h.logger.Warn("persist session after login", zap.Error(err))
	}
	response.OK(c, "Logged in", gin.H{"user": user})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, "Invalid registration details")
		return
	}
	if dto.Role == "" {
		dto.Role = "attendee"
	}

	user, cookies, err := h.api.Register(c.Request.Context(), dto.Name, dto.Email, dto.Password, dto.Role)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	relayCookies(c, cookies)

	if err := h.sessions.SetUser(c.Request.Context(), middleware.ClientKeyFrom(c), user); err != nil {
		h.logger.Warn("persist session after register", zap.Error(err))
	}
	response.Created(c, "Account created", gin.H{"user": user})
}

// logout clears the local session no matter what the backend says. A browser
// that asked to sign out must end up signed out.
func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()

	cookies, err := h.api.Logout(ctx, middleware.AccessTokenFrom(c))
	if err != nil {
		h.logger.Warn("backend logout failed", zap.Error(err))
	}
	relayCookies(c, cookies)

	if err := h.sessions.Logout(ctx, middleware.ClientKeyFrom(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, "Logged out", nil)
}

func (h *Handler) currentUser(c *gin.Context) {
	ctx := c.Request.Context()
	clientKey := middleware.ClientKeyFrom(c)

	token := middleware.AccessTokenFrom(c)
	if token == "" {
		if err := h.sessions.Logout(ctx, clientKey); err != nil {
			h.logger.Warn("clear session without token", zap.Error(err))
		}
		response.Unauthorized(c, "")
		return
	}

	user, err := h.sessions.VerifyAuth(ctx, clientKey, token)
	if err != nil {
		status, msg := upstream.StatusOf(err)
		response.Error(c, status, msg)
		return
	}
	response.OK(c, "", gin.H{"user": user})
}

// sessionSnapshot returns the locally stored session, re-verifying against the
// backend first when the last confirmation has gone stale. Pages call this on
// mount instead of paying for a round trip on every navigation.
func (h *Handler) sessionSnapshot(c *gin.Context) {
	ctx := c.Request.Context()
	clientKey := middleware.ClientKeyFrom(c)

	sess, err := h.sessions.Get(ctx, clientKey)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	token := middleware.AccessTokenFrom(c)
	if sess.IsLoggedIn && token == "" {
		// Cookie gone but record says logged in: the record is stale.
		if clearErr := h.sessions.Logout(ctx, clientKey); clearErr != nil {
			h.logger.Warn("clear cookieless session", zap.Error(clearErr))
		}
		sess = session.Session{}
	} else if h.sessions.NeedsReverify(sess) {
		if _, verifyErr := h.sessions.VerifyAuth(ctx, clientKey, token); verifyErr != nil {
			h.logger.Info("stale session failed re-verification", zap.Error(verifyErr))
		}
		sess, err = h.sessions.Get(ctx, clientKey)
		if err != nil {
			response.InternalError(c, err)
			return
		}
	}

	response.OK(c, "", gin.H{
		"user":         sess.User,
		"isLoggedIn":   sess.IsLoggedIn,
		"lastVerified": sess.LastVerified,
	})
}

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.api.AdminStats(c.Request.Context(), middleware.AccessTokenFrom(c))
	if err != nil {
		h.relayAuthAware(c, err)
		return
	}
	response.OK(c, "", stats)
}

func (h *Handler) deleteUser(c *gin.Context) {
	err := h.api.DeleteUser(c.Request.Context(), middleware.AccessTokenFrom(c), c.Param("id"))
	if err != nil {
		h.relayAuthAware(c, err)
		return
	}
	response.OK(c, "User deleted", nil)
}

// relayAuthAware forwards an upstream failure and drops the session when the
// backend no longer recognizes the token.
func (h *Handler) relayAuthAware(c *gin.Context, err error) {
	if upstream.IsUnauthorized(err) || upstream.IsForbidden(err) {
		if clearErr := h.sessions.Logout(c.Request.Context(), middleware.ClientKeyFrom(c)); clearErr != nil {
			h.logger.Warn("clear rejected session", zap.Error(clearErr))
		}
	}
	status, msg := upstream.StatusOf(err)
	response.Error(c, status, msg)
}
