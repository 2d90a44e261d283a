package handlers

import (
	"context"
	"fmt"
	"net/http"

	"supportdesk/internal/analytics"
	"supportdesk/internal/models"

	"github.com/labstack/echo/v4"
)

// SummaryProvider aggregates routing analytics
type SummaryProvider interface {
	GetSummary(ctx context.Context, organizationID, period string) (*models.AnalyticsSummary, error)
}

// AnalyticsHandler returns analytics summary for a given period
// @Summary Get analytics summary
// @Description Routing event counts for a period (today, yesterday, last_7_days, last_30_days), optionally for one organization
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param period query string false "Time period" default(yesterday)
// @Param organization_id query string false "Organization ID"
// @Success 200 {object} models.AnalyticsResponse
// @Failure 500 {object} models.AnalyticsResponse
// @Failure 503 {object} models.AnalyticsResponse
// @Router /api/admin/analytics [get]
func AnalyticsHandler(provider SummaryProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if provider == nil {
			return c.JSON(http.StatusServiceUnavailable, models.AnalyticsResponse{
				Success: false,
				Error:   "Analytics is not enabled",
			})
		}

		period := c.QueryParam("period")
		if period == "" {
			period = analytics.PeriodYesterday
		}

		summary, err := provider.GetSummary(c.Request().Context(), c.QueryParam("organization_id"), period)
		if err != nil {
			c.Set(ErrorContextKey, err)
			return c.JSON(http.StatusInternalServerError, models.AnalyticsResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to get analytics summary: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.AnalyticsResponse{
			Success: true,
			Summary: summary,
			HitRate: summary.HitRate(),
		})
	}
}
