package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextKeyClientKey holds the opaque per-browser key that sessions are
	// stored under.
	ContextKeyClientKey = "client_key"
	// ContextKeyAccessToken holds the backend access token cookie value, empty
	// when the browser has none.
	ContextKeyAccessToken = "access_token"

	clientKeyMaxAge = 365 * 24 * 60 * 60
)

// ClientKey assigns every browser a stable opaque key cookie and exposes it,
// together with the backend access token cookie, on the request context.
func ClientKey(clientCookie, tokenCookie string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(clientCookie)
		if err != nil || key == "" {
			key = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     clientCookie,
				Value:    key,
				Path:     "/",
				MaxAge:   clientKeyMaxAge,
				Secure:   secure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(ContextKeyClientKey, key)

		if token, err := c.Cookie(tokenCookie); err == nil {
			c.Set(ContextKeyAccessToken, token)
		}
		c.Next()
	}
}

// ClientKeyFrom returns the browser key set by ClientKey.
func ClientKeyFrom(c *gin.Context) string {
	return c.GetString(ContextKeyClientKey)
}

// AccessTokenFrom returns the backend access token, empty when absent.
func AccessTokenFrom(c *gin.Context) string {
	return c.GetString(ContextKeyAccessToken)
}

// HasAccessToken reports whether the browser presented a backend token cookie.
func HasAccessToken(c *gin.Context) bool {
	return AccessTokenFrom(c) != ""
}
