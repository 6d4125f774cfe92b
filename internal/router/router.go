// Package router wires the HTTP route surface.
package router

import (
	"time"

	"woo-sync/internal/handler"
	"woo-sync/internal/middleware"
	"woo-sync/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with the full middleware chain and route
// table.
func NewRouter(
	serverHandler *handler.Server,
	syncHandler *handler.SyncHandler,
	reportHandler *handler.ReportHandler,
	configManager types.ConfigManager,
) *gin.Engine {
	logConfig := configManager.GetLogConfig()
	if logConfig.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	startTime := time.Now()

	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set("serverStartTime", startTime)
		c.Next()
	})
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(configManager.GetPerformanceConfig()))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/health", serverHandler.Health)

	api := router.Group("/api")
	api.Use(middleware.Auth(configManager.GetAuthConfig()))
	{
		sync := api.Group("/sync/:platform")
		{
			sync.POST("/start", syncHandler.Start)
			sync.POST("/stop", syncHandler.Stop)
			sync.POST("/restart", syncHandler.Restart)
			sync.GET("/status", syncHandler.Status)
			sync.POST("/import", syncHandler.Import)
			sync.GET("/runs", syncHandler.Runs)
			sync.PUT("/settings", syncHandler.UpdateSettings)
			sync.PUT("/credentials", syncHandler.UpdateCredentials)
		}

		api.GET("/locations", reportHandler.Locations)
		api.GET("/orders", reportHandler.Orders)
		api.GET("/reports/summary", reportHandler.Summary)
	}

	return router
}
