// Package pages serves the single page app shell. Every page navigation goes
// through the route guard first, then falls through to the bundled index.html
// so the client router can take over.
package pages

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appcfg "github.com/gatherly/web/internal/config"
	"github.com/gatherly/web/internal/pkg/response"
)

// Handler serves locally bundled web app assets and the SPA fallback.
type Handler struct {
	runtime   *appcfg.AppConfig
	staticDir string
}

func NewHandler(runtime *appcfg.AppConfig) *Handler {
	staticDir := ""
	if runtime != nil {
		staticDir = strings.TrimSpace(runtime.StaticDir)
	}
	if staticDir == "" {
		staticDir = strings.TrimSpace(os.Getenv("GATHERLY_STATIC_DIR"))
	}
	if staticDir == "" {
		staticDir = "web"
	}
	return &Handler{runtime: runtime, staticDir: filepath.Clean(staticDir)}
}

// RegisterRoutes installs the SPA fallback. guardMW runs before every page
// response so redirects happen server side, before any HTML is sent.
func (h *Handler) RegisterRoutes(r *gin.Engine, guardMW gin.HandlerFunc) {
	r.NoRoute(guardMW, h.fallback)
}

func (h *Handler) fallback(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		response.NotFound(c, "")
		return
	}
	if c.Request.Method != http.MethodGet {
		response.MethodNotAllowed(c)
		return
	}

	// Asset requests resolve against the bundle directory; anything else gets
	// the app shell.
	if strings.Contains(filepath.Base(path), ".") {
		h.serveAsset(c, path)
		return
	}
	h.serveShell(c)
}

func (h *Handler) serveAsset(c *gin.Context, path string) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(h.staticDir, clean)
	if !strings.HasPrefix(full, h.staticDir+string(os.PathSeparator)) {
		response.NotFound(c, "")
		return
	}
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		response.NotFound(c, "")
		return
	}
	c.File(full)
}

func (h *Handler) serveShell(c *gin.Context) {
	entryPath := filepath.Join(h.staticDir, "index.html")
	content, err := os.ReadFile(entryPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.placeholderShell()))
			return
		}
		response.InternalError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.injectEnv(string(content))))
}

// injectEnv makes the gateway's public configuration available to the client
// bundle before its first script runs.
func (h *Handler) injectEnv(html string) string {
	script := fmt.Sprintf(`<script>window.__GATHERLY_ENV__=%s;</script>`, h.envJSON())
	if idx := strings.Index(html, "<head>"); idx >= 0 {
		return html[:idx+len("<head>")] + script + html[idx+len("<head>"):]
	}
	return script + html
}

func (h *Handler) envJSON() string {
	apiURL := ""
	if h.runtime != nil {
		apiURL = h.runtime.Upstream.BaseURL
	}
	return fmt.Sprintf(`{"apiUrl":%q}`, apiURL)
}

func (h *Handler) placeholderShell() string {
	return `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Gatherly</title>
</head>
<body>
  <main>
    <h1>Gatherly</h1>
    <p>Web bundle not deployed. Place the built assets in the static directory or set <code>GATHERLY_STATIC_DIR</code>.</p>
  </main>
</body>
</html>`
}
