package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK)
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "pdfworkflow",
		Version:   "1.0.0",
	})
}

// HandleRoot serves the service banner listing the available endpoints.
func (s *Server) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message":       "PDF workflow processing API",
		"documentation": "/docs",
		"endpoints": map[string]string{
			"workflow_run":      "/workflow/run",
			"workflow_run_sync": "/workflow/run/sync",
			"workflow_status":   "/workflow/status/{workflow_id}",
			"active_workflows":  "/workflow/active",
		},
	})
}
