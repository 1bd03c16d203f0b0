package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

const anyOrigin = "*"

type CorsHandler struct {
	origins []string
}

// NewCorsHandler allows the listed origins with credentials, so the session
// cookie works cross-origin. "*" additionally lets any origin in without
// credentials.
func NewCorsHandler(origins []string) *CorsHandler {
	return &CorsHandler{origins: origins}
}

func (h *CorsHandler) listed(origin string) bool {
	return origin != anyOrigin && slices.Contains(h.origins, origin)
}

// Allowed reports whether origin may call the API. Requests without an
// Origin header are same-origin and always allowed.
func (h *CorsHandler) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	return h.listed(origin) || slices.Contains(h.origins, anyOrigin)
}

// CheckOrigin is the websocket upgrader check. Browsers send cookies on
// websocket handshakes, so only same-host or listed origins pass; "*" does
// not apply here.
func (h *CorsHandler) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.listed(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func (h *CorsHandler) CorsMiddleware(c *gin.Context) {
	origin := c.GetHeader("Origin")
	header := c.Writer.Header()
	switch {
	case origin == "":
	case h.listed(origin):
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")
	case h.Allowed(origin):
		header.Set("Access-Control-Allow-Origin", anyOrigin)
	}
	if header.Get("Access-Control-Allow-Origin") != "" {
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	}

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
