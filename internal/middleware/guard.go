package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/web/internal/guard"
)

// Guard applies the page-level access rules: signed-in browsers are bounced
// off the auth pages and anonymous ones off the protected pages. It only ever
// redirects page navigations; API routes answer with status codes instead.
func Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.Evaluate(c.Request.URL.Path, HasAccessToken(c))
		if decision.Action == guard.ActionRedirect {
			c.Redirect(http.StatusTemporaryRedirect, decision.Target)
			c.Abort()
			return
		}
		c.Next()
	}
}
