package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server bundles the process-level handlers that don't belong to a domain
// area, such as the health probe.
type Server struct {
	DB *gorm.DB
}

// NewServer creates a new Server handler.
func NewServer(db *gorm.DB) *Server {
	return &Server{DB: db}
}

// Health reports process and database health.
// GET /health
func (s *Server) Health(c *gin.Context) {
	status := "healthy"
	database := "ok"
	httpStatus := http.StatusOK

	sqlDB, err := s.DB.DB()
	if err != nil {
		status, database, httpStatus = "degraded", "unavailable", http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			status, database, httpStatus = "degraded", "unavailable", http.StatusServiceUnavailable
		}
	}

	payload := gin.H{
		"status":    status,
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if startTime, exists := c.Get("serverStartTime"); exists {
		if start, ok := startTime.(time.Time); ok {
			payload["uptime"] = time.Since(start).Round(time.Second).String()
		}
	}

	c.JSON(httpStatus, payload)
}
