package models

import "time"

// Analytics event types
const (
	EventTurn          = "turn"
	EventEscalation    = "escalation"
	EventSearchHit     = "search_hit"
	EventSearchMiss    = "search_miss"
	EventClarification = "clarification"
)

// AnalyticsEvent represents a tracked routing event
type AnalyticsEvent struct {
	ID             int       `db:"id" json:"id"`
	EventType      string    `db:"event_type" json:"event_type"` // turn, escalation, search_hit, search_miss, clarification
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Count          int       `db:"count" json:"count"`
	Metadata       *string   `db:"metadata" json:"metadata,omitempty"` // JSON metadata (intent, reason, score)
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AnalyticsSummary represents aggregated routing analytics for a time period
type AnalyticsSummary struct {
	Period         string         `json:"period"` // "today", "yesterday", "last_7_days", "last_30_days"
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	Turns          int            `json:"turns"`
	Escalations    int            `json:"escalations"`
	SearchHits     int            `json:"search_hits"`
	SearchMisses   int            `json:"search_misses"`
	Clarifications int            `json:"clarifications"`
	ByEvent        map[string]int `json:"by_event"`
}

// HitRate returns the share of knowledge searches that produced an answer
func (s *AnalyticsSummary) HitRate() float64 {
	total := s.SearchHits + s.SearchMisses
	if total == 0 {
		return 0
	}
	return float64(s.SearchHits) / float64(total)
}

// AnalyticsResponse represents the API response for analytics
// @Description Analytics response payload
type AnalyticsResponse struct {
	Success bool              `json:"success" example:"true"`
	Summary *AnalyticsSummary `json:"summary,omitempty"`
	HitRate float64           `json:"hit_rate" example:"0.64"`
	Error   string            `json:"error,omitempty" example:""`
}
