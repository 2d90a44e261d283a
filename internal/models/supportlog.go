package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SupportLogMarker prefixes the JSON payload of every support log message
const SupportLogMarker = "[SUPPORT_LOG]"

// Support log entry types
const (
	LogSearchMiss             = "search_miss"
	LogTroubleshootingAttempt = "troubleshooting_attempt"
	LogConfirmationEscalate   = "confirmation_escalate"
	LogLowConfidenceClarify   = "low_confidence_clarify"
	LogIntent                 = "intent_log"
)

// SupportLogEntry is the routing state recorded in an internal system message
type SupportLogEntry struct {
	Type       string   `json:"type"`
	Intent     string   `json:"intent,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Locale     string   `json:"locale,omitempty"`
	Signal     string   `json:"signal,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	NumResults *int     `json:"num_results,omitempty"`
	Count      int      `json:"count,omitempty"`

	// intent_log summary
	LastResort      bool   `json:"last_resort,omitempty"`
	EscalationOffer bool   `json:"escalation_offer,omitempty"`
	Clarification   bool   `json:"clarification,omitempty"`
	SearchPerformed bool   `json:"search_performed,omitempty"`
	Escalated       bool   `json:"escalated,omitempty"`
	SearchHit       *bool  `json:"search_hit"`
	Trigger         string `json:"trigger,omitempty"`

	At time.Time `json:"at"`
}

// EncodeSupportLog renders the entry as message content
func EncodeSupportLog(entry SupportLogEntry) (string, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode support log entry: %w", err)
	}
	return SupportLogMarker + string(payload), nil
}

// ParseSupportLog extracts an entry from message content. ok is false when the
// content is not a support log message.
func ParseSupportLog(content string) (SupportLogEntry, bool) {
	var entry SupportLogEntry
	rest, found := strings.CutPrefix(strings.TrimSpace(content), SupportLogMarker)
	if !found {
		return entry, false
	}
	if err := json.Unmarshal([]byte(rest), &entry); err != nil {
		return entry, false
	}
	return entry, entry.Type != ""
}

// SupportLogMessage wraps an encoded entry into an internal system message
func SupportLogMessage(threadID string, entry SupportLogEntry) (Message, error) {
	content, err := EncodeSupportLog(entry)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ThreadID:   threadID,
		Role:       RoleSystem,
		Content:    content,
		Visibility: VisibilityInternal,
	}, nil
}

// CountersFromLog rebuilds routing counters by replaying support log entries
func CountersFromLog(threadID string, history []Message) TurnCounters {
	counters := TurnCounters{ThreadID: threadID}
	for _, msg := range history {
		if msg.Role != RoleSystem {
			continue
		}
		entry, ok := ParseSupportLog(msg.Content)
		if !ok {
			continue
		}
		switch entry.Type {
		case LogSearchMiss:
			counters.SearchMisses++
		case LogTroubleshootingAttempt:
			counters.TroubleshootingAttempts++
		}
	}
	return counters
}
