package main

import (
	"net/http"

	"github.com/Sternrassler/ghnotify/pkg/block"
	"github.com/Sternrassler/ghnotify/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// newDiagRouter serves /metrics, /health and /status for a running block.
func newDiagRouter(g *block.Github) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	metrics.SetVersion(Version)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", handleHealth)
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, g.Status())
	})

	return router
}

func handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
