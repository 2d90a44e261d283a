package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Visibility controls whether a message is shown in the end-user feed
type Visibility string

const (
	VisibilityUser     Visibility = "user"
	VisibilityInternal Visibility = "internal"
)

// Message is the canonical, append-only record of a thread entry
type Message struct {
	ID         string     `db:"id" json:"id"`
	Seq        int64      `db:"seq" json:"seq"`
	ThreadID   string     `db:"thread_id" json:"thread_id"`
	Role       Role       `db:"role" json:"role"`
	Content    string     `db:"content" json:"content"`
	Visibility Visibility `db:"visibility" json:"visibility"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Internal reports whether the message must be hidden from the end user
func (m Message) Internal() bool {
	return m.Visibility == VisibilityInternal || m.Role == RoleSystem || m.Role == RoleTool
}

// RawMessage is a message as produced by an arbitrary writer. Content may be
// a plain string or an array of parts, and may sit at the top level or under
// message.content.
type RawMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Message    *RawMessageBody `json:"message,omitempty"`
	Visibility string          `json:"visibility,omitempty"`
	Tool       bool            `json:"tool,omitempty"`
}

// RawMessageBody is the nested message shape
type RawMessageBody struct {
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NormalizeMessage converts a raw message into the canonical record. A message is
// internal when it is tagged internal, has a system or tool role, or carries the
// tool flag.
func NormalizeMessage(threadID string, raw RawMessage) Message {
	role := Role(strings.ToLower(strings.TrimSpace(raw.Role)))
	content := contentText(raw.Content)
	if raw.Message != nil {
		if role == "" {
			role = Role(strings.ToLower(strings.TrimSpace(raw.Message.Role)))
		}
		if content == "" {
			content = contentText(raw.Message.Content)
		}
	}
	if role == "" {
		role = RoleUser
	}

	visibility := VisibilityUser
	if strings.EqualFold(raw.Visibility, string(VisibilityInternal)) || raw.Tool ||
		role == RoleSystem || role == RoleTool {
		visibility = VisibilityInternal
	}

	return Message{
		ThreadID:   threadID,
		Role:       role,
		Content:    content,
		Visibility: visibility,
	}
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Text == "" || (p.Type != "" && p.Type != "text") {
				continue
			}
			texts = append(texts, p.Text)
		}
		return strings.Join(texts, "\n")
	}

	return ""
}
