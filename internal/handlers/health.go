package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"supportdesk/internal/models"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency that can report its connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles basic health check requests
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func HealthHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
		}

		return c.JSON(http.StatusOK, response)
	}
}

// DBHealthHandler pings every storage dependency, in name order
// @Summary Storage health check
// @Tags health
// @Produce json
// @Success 200 {object} models.DBHealthResponse
// @Failure 503 {object} models.DBHealthResponse
// @Router /healthz/db [get]
func DBHealthHandler(deps map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.DBHealthResponse{
			Status:    "unknown",
			Timestamp: time.Now().UTC(),
			Connected: false,
			Latency:   0,
		}

		if len(deps) == 0 {
			response.Status = "unhealthy"
			response.Error = "Database connection not initialized"
			return c.JSON(http.StatusServiceUnavailable, response)
		}

		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		for _, name := range names {
			dep := deps[name]
			if dep == nil {
				response.Status = "unhealthy"
				response.Error = fmt.Sprintf("%s: not initialized", name)
				return c.JSON(http.StatusServiceUnavailable, response)
			}
			if err := dep.Ping(ctx); err != nil {
				response.Latency = time.Since(start)
				response.Status = "unhealthy"
				response.Error = fmt.Sprintf("%s: %v", name, err)
				return c.JSON(http.StatusServiceUnavailable, response)
			}
		}
		response.Latency = time.Since(start)

		response.Status = "healthy"
		response.Connected = true

		return c.JSON(http.StatusOK, response)
	}
}

// RootHandler handles requests to the root endpoint
func RootHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "supportdesk",
			"version": version,
			"status":  "running",
		})
	}
}
