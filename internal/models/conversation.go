package models

import (
	"errors"
	"time"
)

// ConversationStatus is the lifecycle state of a support conversation
type ConversationStatus string

const (
	StatusUnresolved ConversationStatus = "unresolved"
	StatusEscalated  ConversationStatus = "escalated"
	StatusResolved   ConversationStatus = "resolved"
)

// Valid reports whether s is one of the known statuses
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusUnresolved, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// SubscriptionActive is the only subscription status that keeps the bot answering
const SubscriptionActive = "active"

// ErrStaleCounters is returned by a turn commit when another turn advanced the
// conversation counters after they were read.
var ErrStaleCounters = errors.New("conversation counters changed concurrently")

// Conversation is a visitor chat owned by an organization (tenant)
type Conversation struct {
	ID               string             `db:"id" json:"id"`
	OrganizationID   string             `db:"organization_id" json:"organization_id"`
	ThreadID         string             `db:"thread_id" json:"thread_id"`
	ContactSessionID string             `db:"contact_session_id" json:"contact_session_id"`
	Status           ConversationStatus `db:"status" json:"status"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// ContactSession is a widget visitor session issued by the platform
type ContactSession struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Name           *string   `db:"name" json:"name,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now
func (s *ContactSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Subscription is the billing state of an organization
type Subscription struct {
	OrganizationID string `db:"organization_id" json:"organization_id"`
	Status         string `db:"status" json:"status"`
}

// TurnCounters are the per-conversation routing counters. Version is zero until
// the first commit creates the record.
type TurnCounters struct {
	ThreadID                string `db:"thread_id" json:"thread_id"`
	SearchMisses            int    `db:"search_misses" json:"search_misses"`
	TroubleshootingAttempts int    `db:"troubleshooting_attempts" json:"troubleshooting_attempts"`
	Version                 int    `db:"version" json:"version"`
}

// TurnCommit groups the writes produced by one routed turn. They are applied
// atomically, guarded by ExpectedVersion.
type TurnCommit struct {
	ThreadID        string
	Messages        []Message // support log entries and the visible reply, in order
	Status          *ConversationStatus
	Counters        TurnCounters
	ExpectedVersion int
}

// EscalationNotice describes a conversation handed over to operators
type EscalationNotice struct {
	Conversation Conversation
	Reason       string
	Locale       string
	Transcript   []Message // visible messages, oldest first
}
