// Package api exposes question sessions and the reference corpus over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sha1n/mcp-refqa-server/internal/qa"
)

// HealthPath is served without authentication.
const HealthPath = "/health"

// NewRouter builds the HTTP API. Middleware runs after recovery and request
// logging and before every route except the health check.
func NewRouter(svc *qa.Service, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"references": svc.References().IsReady(),
		})
	})

	h := NewHandler(svc)
	v1 := router.Group("/api/v1", middleware...)
	{
		v1.GET("/sessions", h.ListSessions)
		v1.POST("/sessions", h.CreateSession)
		v1.GET("/sessions/:id", h.GetSession)
		v1.DELETE("/sessions/:id", h.DeleteSession)
		v1.POST("/sessions/:id/answers", h.AnswerSession)
		v1.GET("/sessions/:id/export", h.ExportSession)

		v1.GET("/references", h.ListReferences)
		v1.POST("/references/reload", h.ReloadReferences)
		v1.GET("/references/search", h.SearchReferences)
		v1.GET("/references/:filename", h.GetReference)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
