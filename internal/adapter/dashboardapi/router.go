package dashboardapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine serving the API under /api/v1.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	api := router.Group("/api/v1")
	h.RegisterRoutes(api)
	return router
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
