package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"supportdesk/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps conversations, messages, counters and platform records in
// memory. It is used in development mode and by tests.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation // by thread id
	messages      map[string][]models.Message
	counters      map[string]models.TurnCounters
	sessions      map[string]models.ContactSession
	subscriptions map[string]models.Subscription
	seq           int64
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
		counters:      make(map[string]models.TurnCounters),
		sessions:      make(map[string]models.ContactSession),
		subscriptions: make(map[string]models.Subscription),
		now:           time.Now,
	}
}

// PutContactSession stores a contact session
func (m *MemoryStore) PutContactSession(session models.ContactSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

// PutSubscription stores an organization subscription
func (m *MemoryStore) PutSubscription(sub models.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.OrganizationID] = sub
}

// GetContactSession returns nil when the session does not exist
func (m *MemoryStore) GetContactSession(_ context.Context, id string) (*models.ContactSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// GetSubscriptionByOrganizationID returns nil when the organization has no subscription
func (m *MemoryStore) GetSubscriptionByOrganizationID(_ context.Context, organizationID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[organizationID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// CreateConversation inserts a new conversation, assigning ids when empty
func (m *MemoryStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.ThreadID == "" {
		conv.ThreadID = uuid.NewString()
	}
	if conv.Status == "" {
		conv.Status = models.StatusUnresolved
	}
	if _, exists := m.conversations[conv.ThreadID]; exists {
		return fmt.Errorf("failed to create conversation: thread %s already exists", conv.ThreadID)
	}
	now := m.now().UTC()
	conv.CreatedAt, conv.UpdatedAt = now, now

	stored := *conv
	m.conversations[conv.ThreadID] = &stored
	return nil
}

// GetConversationByThreadID returns nil when the thread does not exist
func (m *MemoryStore) GetConversationByThreadID(_ context.Context, threadID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[threadID]
	if !ok {
		return nil, nil
	}
	copied := *conv
	return &copied, nil
}

// UpdateConversationStatus patches the status of a conversation
func (m *MemoryStore) UpdateConversationStatus(_ context.Context, threadID string, status models.ConversationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatus(threadID, status)
}

func (m *MemoryStore) setStatus(threadID string, status models.ConversationStatus) error {
	conv, ok := m.conversations[threadID]
	if !ok {
		return fmt.Errorf("failed to update conversation status: thread %s not found", threadID)
	}
	conv.Status = status
	conv.UpdatedAt = m.now().UTC()
	return nil
}

// ListConversations returns conversations of an organization, most recently updated first
func (m *MemoryStore) ListConversations(_ context.Context, organizationID string, status models.ConversationStatus, limit, offset int) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conversations := []models.Conversation{}
	for _, conv := range m.conversations {
		if conv.OrganizationID != organizationID || (status != "" && conv.Status != status) {
			continue
		}
		conversations = append(conversations, *conv)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	if offset >= len(conversations) {
		return []models.Conversation{}, nil
	}
	conversations = conversations[offset:]
	if limit > 0 && limit < len(conversations) {
		conversations = conversations[:limit]
	}
	return conversations, nil
}

func (m *MemoryStore) appendLocked(msg *models.Message) error {
	if _, ok := m.conversations[msg.ThreadID]; !ok {
		return fmt.Errorf("failed to save message: thread %s not found", msg.ThreadID)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Internal() {
		msg.Visibility = models.VisibilityInternal
	} else if msg.Visibility == "" {
		msg.Visibility = models.VisibilityUser
	}
	m.seq++
	msg.Seq = m.seq
	msg.CreatedAt = m.now().UTC()
	m.messages[msg.ThreadID] = append(m.messages[msg.ThreadID], *msg)
	return nil
}

// AppendMessage appends msg to its thread, filling ID, Seq and CreatedAt
func (m *MemoryStore) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(msg)
}

// RecentMessages returns the last limit messages of a thread, oldest first
func (m *MemoryStore) RecentMessages(_ context.Context, threadID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.messages[threadID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	return append([]models.Message{}, all[start:]...), nil
}

// ListMessages pages through a thread in order, starting after cursor
func (m *MemoryStore) ListMessages(_ context.Context, threadID string, cursor int64, limit int, includeInternal bool) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := []models.Message{}
	for _, msg := range m.messages[threadID] {
		if msg.Seq <= cursor || (!includeInternal && msg.Internal()) {
			continue
		}
		page = append(page, msg)
		if limit > 0 && len(page) == limit {
			break
		}
	}
	return page, nil
}

// GetCounters returns nil when no turn has been committed yet
func (m *MemoryStore) GetCounters(_ context.Context, threadID string) (*models.TurnCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters, ok := m.counters[threadID]
	if !ok {
		return nil, nil
	}
	return &counters, nil
}

// CommitTurn applies the writes of one turn atomically with a version check
func (m *MemoryStore) CommitTurn(_ context.Context, commit models.TurnCommit) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[commit.ThreadID]; !ok {
		return nil, fmt.Errorf("failed to commit turn: thread %s not found", commit.ThreadID)
	}
	current, exists := m.counters[commit.ThreadID]
	if (!exists && commit.ExpectedVersion != 0) || (exists && current.Version != commit.ExpectedVersion) {
		return nil, models.ErrStaleCounters
	}

	messages := make([]models.Message, len(commit.Messages))
	for i := range commit.Messages {
		msg := commit.Messages[i]
		msg.ThreadID = commit.ThreadID
		if err := m.appendLocked(&msg); err != nil {
			return nil, err
		}
		messages[i] = msg
	}

	if commit.Status != nil {
		if err := m.setStatus(commit.ThreadID, *commit.Status); err != nil {
			return nil, err
		}
	}

	m.counters[commit.ThreadID] = models.TurnCounters{
		ThreadID:                commit.ThreadID,
		SearchMisses:            commit.Counters.SearchMisses,
		TroubleshootingAttempts: commit.Counters.TroubleshootingAttempts,
		Version:                 commit.ExpectedVersion + 1,
	}
	return messages, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
