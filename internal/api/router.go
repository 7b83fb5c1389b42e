// Package api wires the HTTP routes.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/handlers"
	"github.com/jonesrussell/cardpress/internal/logger"
)

const corsMaxAgeHours = 12

// Handlers bundles everything the router mounts.
type Handlers struct {
	Sources *handlers.SourceHandler
	Items   *handlers.ItemHandler
	Chat    *handlers.ChatHandler
	Library *handlers.LibraryHandler
}

func NewRouter(h Handlers, corsOrigins []string, log logger.Logger) *gin.Engine {
	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"X-CSRF-Token", "Authorization", "accept", "origin",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	sources := v1.Group("/sources")
	sources.POST("", h.Sources.Create)
	sources.GET("", h.Sources.List)
	sources.GET("/:id", h.Sources.GetByID)
	sources.PUT("/:id", h.Sources.Update)
	sources.DELETE("/:id", h.Sources.Delete)
	sources.POST("/:id/crawl", h.Sources.Crawl)
	sources.GET("/:id/logs", h.Sources.Logs)
	sources.POST("/validate-feed", h.Sources.ValidateFeed)

	v1.GET("/crawl-logs", h.Sources.RecentLogs)

	items := v1.Group("/items")
	items.POST("", h.Items.Submit)
	items.GET("/:id", h.Items.Get)
	items.DELETE("/:id", h.Items.Delete)
	items.POST("/:id/summarize", h.Items.Summarize)
	items.POST("/:id/generate", h.Items.Generate)
	items.PUT("/:id/sections", h.Items.ReplaceSections)
	items.POST("/:id/save", h.Items.Save)
	items.POST("/:id/retry", h.Items.Retry)
	items.POST("/:id/chat", h.Chat.Apply)
	items.POST("/:id/chat/undo", h.Chat.Undo)

	v1.GET("/library", h.Library.Feed)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
