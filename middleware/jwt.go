package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/types"
	"github.com/tieubaoca/research-assistant/utils"
)

// SessionCookie is the cookie the login handler sets.
const SessionCookie = "session"

const sessionContextKey = "session"

// AuthMiddleware accepts the session cookie or a Bearer token and stores
// the resulting *types.Session in the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				token = cookie
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "Please log in to continue.",
			})
			return
		}

		session, err := utils.ParseSessionToken(token, secret)
		if err != nil || !session.Active(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  false,
				Message: "Session expired, please log in again.",
			})
			return
		}
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFrom returns the session set by AuthMiddleware, or nil.
func SessionFrom(c *gin.Context) *types.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, _ := v.(*types.Session)
	return session
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
