package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"supportdesk/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Period constants for analytics queries
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

// Service records routing events and aggregates them per day
type Service struct {
	db     *sqlx.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates the analytics service and its tables
func NewService(ctx context.Context, db *sqlx.DB, logger zerolog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required for analytics service")
	}

	service := &Service{
		db:     db,
		logger: logger.With().Str("component", "analytics").Logger(),
		now:    time.Now,
	}
	if err := service.createTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create analytics tables: %w", err)
	}
	return service, nil
}

func (s *Service) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id SERIAL PRIMARY KEY,
			organization_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			count INT DEFAULT 1,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_org_type ON analytics_events(organization_id, event_type)`,
		`CREATE TABLE IF NOT EXISTS analytics_daily (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			organization_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			total_count INT DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(date, organization_id, event_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_daily_date ON analytics_daily(date)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Track records one event for an organization
func (s *Service) Track(ctx context.Context, organizationID, eventType string, metadata map[string]interface{}) error {
	var metadataJSON *string
	if metadata != nil {
		if jsonBytes, err := json.Marshal(metadata); err == nil {
			str := string(jsonBytes)
			metadataJSON = &str
		}
	}

	query := `INSERT INTO analytics_events (organization_id, event_type, count, metadata) VALUES ($1, $2, 1, $3)`
	if _, err := s.db.ExecContext(ctx, query, organizationID, eventType, metadataJSON); err != nil {
		return fmt.Errorf("failed to track event: %w", err)
	}

	today := s.now().UTC().Format("2006-01-02")
	aggregateQuery := `
		INSERT INTO analytics_daily (date, organization_id, event_type, total_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (date, organization_id, event_type) DO UPDATE SET
			total_count = analytics_daily.total_count + EXCLUDED.total_count,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, aggregateQuery, today, organizationID, eventType); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to update daily aggregate")
	}
	return nil
}

// PeriodRange returns the time range covered by period. Unknown periods mean today.
func PeriodRange(period string, now time.Time) (string, time.Time, time.Time) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodYesterday:
		return period, midnight.AddDate(0, 0, -1), midnight
	case PeriodLast7Days:
		return period, now.AddDate(0, 0, -7), now
	case PeriodLast30Days:
		return period, now.AddDate(0, 0, -30), now
	default:
		return PeriodToday, midnight, now
	}
}

type eventTotal struct {
	EventType string `db:"event_type"`
	Total     int    `db:"total"`
}

// GetSummary aggregates events of a period. An empty organizationID covers all
// organizations.
func (s *Service) GetSummary(ctx context.Context, organizationID, period string) (*models.AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	period, startDate, endDate := PeriodRange(period, s.now())
	summary := &models.AnalyticsSummary{
		Period:    period,
		StartDate: startDate,
		EndDate:   endDate,
		ByEvent:   make(map[string]int),
	}

	query := `
		SELECT event_type, COALESCE(SUM(total_count), 0) AS total
		FROM analytics_daily
		WHERE date >= $1 AND date <= $2 AND ($3 = '' OR organization_id = $3)
		GROUP BY event_type
	`
	var totals []eventTotal
	if err := s.db.SelectContext(ctx, &totals, query,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"), organizationID); err != nil {
		return nil, fmt.Errorf("failed to get analytics summary: %w", err)
	}

	for _, row := range totals {
		summary.ByEvent[row.EventType] = row.Total
		switch row.EventType {
		case models.EventTurn:
			summary.Turns = row.Total
		case models.EventEscalation:
			summary.Escalations = row.Total
		case models.EventSearchHit:
			summary.SearchHits = row.Total
		case models.EventSearchMiss:
			summary.SearchMisses = row.Total
		case models.EventClarification:
			summary.Clarifications = row.Total
		}
	}
	return summary, nil
}
