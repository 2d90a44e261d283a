package router

import (
	"context"
	"strings"

	"supportdesk/internal/models"
)

// MessagePage is one page of a thread's message log
type MessagePage struct {
	Messages   []models.Message
	NextCursor int64
	Done       bool
}

// StartConversation opens an unresolved conversation for a valid contact session
func (r *Router) StartConversation(ctx context.Context, contactSessionID string) (*models.Conversation, error) {
	session, err := r.validSession(ctx, contactSessionID)
	if err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		OrganizationID:   session.OrganizationID,
		ContactSessionID: session.ID,
		Status:           models.StatusUnresolved,
	}
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return nil, upstream("failed to create conversation", err)
	}

	r.logger.Info().
		Str("thread_id", conv.ThreadID).
		Str("organization_id", conv.OrganizationID).
		Msg("Conversation started")
	return conv, nil
}

// ConversationStatus returns the conversation after checking the caller's session
func (r *Router) ConversationStatus(ctx context.Context, threadID, contactSessionID string) (*models.Conversation, error) {
	return r.authorize(ctx, threadID, contactSessionID)
}

// VisibleMessages pages through the messages an end user may see
func (r *Router) VisibleMessages(ctx context.Context, threadID, contactSessionID string, cursor int64, limit int) (*MessagePage, error) {
	if _, err := r.authorize(ctx, threadID, contactSessionID); err != nil {
		return nil, err
	}
	return r.page(ctx, threadID, cursor, limit, false)
}

// Conversation returns a conversation for an operator
func (r *Router) Conversation(ctx context.Context, threadID string) (*models.Conversation, error) {
	conv, err := r.store.GetConversationByThreadID(ctx, threadID)
	if err != nil {
		return nil, upstream("failed to load conversation", err)
	}
	if conv == nil {
		return nil, newError(KindNotFound, "conversation not found")
	}
	return conv, nil
}

// ListConversations lists an organization's conversations for operators. An
// empty status lists every status.
func (r *Router) ListConversations(ctx context.Context, organizationID string, status models.ConversationStatus, limit, offset int) ([]models.Conversation, error) {
	if organizationID == "" {
		return nil, newError(KindInvalidInput, "organization_id is required")
	}
	if status != "" && !status.Valid() {
		return nil, newError(KindInvalidInput, "unknown conversation status")
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	conversations, err := r.store.ListConversations(ctx, organizationID, status, limit, offset)
	if err != nil {
		return nil, upstream("failed to list conversations", err)
	}
	return conversations, nil
}

// ConversationMessages pages through the full log of a thread, support log
// entries included
func (r *Router) ConversationMessages(ctx context.Context, threadID string, cursor int64, limit int) (*MessagePage, error) {
	if _, err := r.Conversation(ctx, threadID); err != nil {
		return nil, err
	}
	return r.page(ctx, threadID, cursor, limit, true)
}

// SetStatus changes a conversation's status on behalf of an operator
func (r *Router) SetStatus(ctx context.Context, threadID string, status models.ConversationStatus) (*models.Conversation, error) {
	if !status.Valid() {
		return nil, newError(KindInvalidInput, "unknown conversation status")
	}
	conv, err := r.Conversation(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if conv.Status == status {
		return conv, nil
	}

	if err := r.store.UpdateConversationStatus(ctx, threadID, status); err != nil {
		return nil, upstream("failed to update conversation status", err)
	}

	r.logger.Info().
		Str("thread_id", threadID).
		Str("from", string(conv.Status)).
		Str("to", string(status)).
		Msg("Conversation status changed")

	conv.Status = status
	return conv, nil
}

// PostOperatorReply appends a message written by an operator or another
// internal writer. The raw shape is normalized first; system, tool and
// internal-tagged messages stay out of the end-user feed.
func (r *Router) PostOperatorReply(ctx context.Context, threadID string, raw models.RawMessage) (*models.Message, error) {
	conv, err := r.Conversation(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusResolved {
		return nil, newError(KindInvalidState, "conversation is resolved")
	}

	if strings.TrimSpace(raw.Role) == "" && (raw.Message == nil || strings.TrimSpace(raw.Message.Role) == "") {
		raw.Role = string(models.RoleAssistant)
	}
	msg := models.NormalizeMessage(threadID, raw)
	if msg.Role == models.RoleUser {
		return nil, newError(KindInvalidInput, "operators cannot post user messages")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, newError(KindInvalidInput, "message content is required")
	}

	if err := r.store.AppendMessage(ctx, &msg); err != nil {
		return nil, upstream("failed to save message", err)
	}
	r.publish(ctx, msg)
	return &msg, nil
}

func (r *Router) page(ctx context.Context, threadID string, cursor int64, limit int, includeInternal bool) (*MessagePage, error) {
	limit = clampLimit(limit)
	if cursor < 0 {
		cursor = 0
	}

	// one extra row tells whether another page exists
	messages, err := r.store.ListMessages(ctx, threadID, cursor, limit+1, includeInternal)
	if err != nil {
		return nil, upstream("failed to list messages", err)
	}

	page := &MessagePage{Messages: messages, NextCursor: cursor, Done: len(messages) <= limit}
	if !page.Done {
		page.Messages = messages[:limit]
	}
	if n := len(page.Messages); n > 0 {
		page.NextCursor = page.Messages[n-1].Seq
	}
	return page, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
