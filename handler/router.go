package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/middleware"
)

// Handlers groups everything NewRouter mounts. Search and Stream are
// optional.
type Handlers struct {
	Auth     *AuthHandler
	Upload   *UploadHandler
	Document *DocumentHandler
	Research *ResearchHandler
	Search   *SearchHandler
	Stream   *StreamHandler
	Cors     *CorsHandler
}

func NewRouter(h Handlers, jwtSecret string, log logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))
	if h.Cors != nil {
		router.Use(h.Cors.CorsMiddleware)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	requireSession := middleware.AuthMiddleware(jwtSecret)
	apiV1 := router.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		auth.POST("/register", h.Auth.HandleRegister)
		auth.POST("/login", h.Auth.HandleLogin)
		auth.POST("/logout", h.Auth.HandleLogout)
		auth.GET("/me", requireSession, h.Auth.HandleMe)

		protected := apiV1.Group("", requireSession)
		protected.POST("/documents/preview", h.Upload.LimitBody, h.Document.HandlePreview)

		research := protected.Group("/research")
		research.POST("/run", h.Upload.LimitBody, h.Research.HandleRun)
		research.POST("/evaluate", h.Upload.LimitBody, h.Research.HandleEvaluate)
		if h.Search != nil {
			research.POST("/lookup", h.Search.HandleLookup)
		}
		if h.Stream != nil {
			research.GET("/stream", h.Stream.HandleStream)
		}
	}
	return router
}
