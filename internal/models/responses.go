package models

import "time"

// HealthResponse represents a basic health check response
// @Description Health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`                 // Health status
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"` // Timestamp of the check
	Version   string    `json:"version" example:"1.0.0"`                  // Application version
}

// DBHealthResponse represents a database health check response
// @Description Database health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`                   // Health status
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`   // Timestamp of the check
	Connected bool          `json:"connected" example:"true"`                   // Database connection status
	Latency   time.Duration `json:"latency" swaggertype:"string" example:"1ms"` // Database ping latency
	Error     string        `json:"error,omitempty" example:""`                 // Error message if any
}

// ErrorResponse is returned by every endpoint on failure
// @Description Error payload
type ErrorResponse struct {
	Error string `json:"error" example:"conversation not found"` // Error message
	Kind  string `json:"kind,omitempty" example:"not_found"`     // Error category
}

// StartConversationRequest opens a new conversation for a widget visitor
// @Description Start conversation payload
type StartConversationRequest struct {
	ContactSessionID string `json:"contact_session_id" example:"3f1c..."` // Contact session issued by the platform
}

// ConversationResponse describes a conversation to the widget
// @Description Conversation payload
type ConversationResponse struct {
	ThreadID string             `json:"thread_id" example:"b7e2..."`  // Thread identifier
	Status   ConversationStatus `json:"status" example:"unresolved"` // unresolved, escalated or resolved
}

// SubmitMessageRequest is a visitor message sent from the widget
// @Description Submit message payload
type SubmitMessageRequest struct {
	ContactSessionID string `json:"contact_session_id" example:"3f1c..."` // Contact session issued by the platform
	Text             string `json:"text" example:"harga berapa?"`        // Message text
}

// SubmitMessageResponse acknowledges a submitted message. The reply arrives
// through the message feed.
// @Description Submit message acknowledgement
type SubmitMessageResponse struct {
	Accepted bool               `json:"accepted" example:"true"`
	Status   ConversationStatus `json:"status" example:"unresolved"` // Conversation status after the turn
}

// MessageListResponse is a page of thread messages
// @Description Message page
type MessageListResponse struct {
	Messages   []Message `json:"messages"`              // Messages in creation order
	NextCursor string    `json:"next_cursor,omitempty"` // Cursor for the next page
	Done       bool      `json:"done"`                  // True when no more messages remain
}

// ConversationListResponse is a page of an organization's conversations
// @Description Conversation list
type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
	Limit         int            `json:"limit" example:"20"`
	Offset        int            `json:"offset" example:"0"`
}

// StatusUpdateRequest is an operator status change
// @Description Status update payload
type StatusUpdateRequest struct {
	Status ConversationStatus `json:"status" example:"resolved"`
}

// AdminAuthRequest represents operator login credentials
// @Description Operator login payload
type AdminAuthRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password" example:"secret"`
}

// AdminAuthResponse carries the issued operator token
// @Description Operator login response
type AdminAuthResponse struct {
	Success bool   `json:"success" example:"true"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty" example:""`
}
