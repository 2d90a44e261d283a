package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"supportdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Store persists conversations, their message log and routing counters in PostgreSQL
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore creates a conversation store and its tables
func NewStore(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required for conversation store")
	}

	store := &Store{db: db, now: time.Now}
	if err := store.CreateTables(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// CreateTables creates the conversation tables in the database
func (s *Store) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(36) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			thread_id VARCHAR(36) UNIQUE NOT NULL,
			contact_session_id VARCHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unresolved',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_org_status ON conversations(organization_id, status)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(36) UNIQUE NOT NULL,
			thread_id VARCHAR(36) NOT NULL REFERENCES conversations(thread_id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			visibility VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread_seq ON messages(thread_id, seq)`,
		`CREATE TABLE IF NOT EXISTS conversation_counters (
			thread_id VARCHAR(36) PRIMARY KEY REFERENCES conversations(thread_id) ON DELETE CASCADE,
			search_misses INTEGER NOT NULL DEFAULT 0,
			troubleshooting_attempts INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create conversation tables: %w", err)
		}
	}
	return nil
}

// CreateConversation inserts a new conversation, assigning ids when empty
func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	now := s.now().UTC()
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.ThreadID == "" {
		conv.ThreadID = uuid.NewString()
	}
	if conv.Status == "" {
		conv.Status = models.StatusUnresolved
	}
	conv.CreatedAt, conv.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, organization_id, thread_id, contact_session_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		conv.ID, conv.OrganizationID, conv.ThreadID, conv.ContactSessionID, conv.Status, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversationByThreadID returns nil when the thread does not exist
func (s *Store) GetConversationByThreadID(ctx context.Context, threadID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.GetContext(ctx, &conv, `
		SELECT id, organization_id, thread_id, contact_session_id, status, created_at, updated_at
		FROM conversations
		WHERE thread_id = $1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// UpdateConversationStatus patches the status of a conversation
func (s *Store) UpdateConversationStatus(ctx context.Context, threadID string, status models.ConversationStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = $1, updated_at = $2 WHERE thread_id = $3`,
		status, s.now().UTC(), threadID)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update conversation status: thread %s not found", threadID)
	}
	return nil
}

// ListConversations returns conversations of an organization, most recently updated first
func (s *Store) ListConversations(ctx context.Context, organizationID string, status models.ConversationStatus, limit, offset int) ([]models.Conversation, error) {
	query := `
		SELECT id, organization_id, thread_id, contact_session_id, status, created_at, updated_at
		FROM conversations
		WHERE organization_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4`

	conversations := []models.Conversation{}
	if err := s.db.SelectContext(ctx, &conversations, query, organizationID, string(status), limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

type execQueryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func (s *Store) insertMessage(ctx context.Context, q execQueryer, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Internal() {
		msg.Visibility = models.VisibilityInternal
	} else if msg.Visibility == "" {
		msg.Visibility = models.VisibilityUser
	}
	msg.CreatedAt = s.now().UTC()

	err := q.QueryRowxContext(ctx, `
		INSERT INTO messages (id, thread_id, role, content, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`,
		msg.ID, msg.ThreadID, msg.Role, msg.Content, msg.Visibility, msg.CreatedAt).Scan(&msg.Seq)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// AppendMessage appends msg to its thread, filling ID, Seq and CreatedAt
func (s *Store) AppendMessage(ctx context.Context, msg *models.Message) error {
	return s.insertMessage(ctx, s.db, msg)
}

const messageColumns = `seq, id, thread_id, role, content, visibility, created_at`

// RecentMessages returns the last limit messages of a thread, oldest first,
// internal entries included
func (s *Store) RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.SelectContext(ctx, &messages, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE thread_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}
	return messages, nil
}

// ListMessages pages through a thread in order, starting after cursor
func (s *Store) ListMessages(ctx context.Context, threadID string, cursor int64, limit int, includeInternal bool) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE thread_id = $1 AND seq > $2`
	if !includeInternal {
		query += ` AND visibility = 'user'`
	}
	query += ` ORDER BY seq ASC LIMIT $3`

	messages := []models.Message{}
	if err := s.db.SelectContext(ctx, &messages, query, threadID, cursor, limit); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// GetCounters returns nil when no turn has been committed yet
func (s *Store) GetCounters(ctx context.Context, threadID string) (*models.TurnCounters, error) {
	var counters models.TurnCounters
	err := s.db.GetContext(ctx, &counters, `
		SELECT thread_id, search_misses, troubleshooting_attempts, version
		FROM conversation_counters
		WHERE thread_id = $1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}
	return &counters, nil
}

// CommitTurn applies the writes of one turn in a single transaction. The
// counter row is written first with a version check; ErrStaleCounters is
// returned when another turn committed since the counters were read.
func (s *Store) CommitTurn(ctx context.Context, commit models.TurnCommit) ([]models.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin turn transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result sql.Result
	if commit.ExpectedVersion == 0 {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_counters (thread_id, search_misses, troubleshooting_attempts, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())
			ON CONFLICT (thread_id) DO NOTHING`,
			commit.ThreadID, commit.Counters.SearchMisses, commit.Counters.TroubleshootingAttempts)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE conversation_counters
			SET search_misses = $1, troubleshooting_attempts = $2, version = version + 1, updated_at = NOW()
			WHERE thread_id = $3 AND version = $4`,
			commit.Counters.SearchMisses, commit.Counters.TroubleshootingAttempts, commit.ThreadID, commit.ExpectedVersion)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write counters: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to write counters: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrStaleCounters
	}

	messages := make([]models.Message, len(commit.Messages))
	for i := range commit.Messages {
		msg := commit.Messages[i]
		msg.ThreadID = commit.ThreadID
		if err := s.insertMessage(ctx, tx, &msg); err != nil {
			return nil, err
		}
		messages[i] = msg
	}

	if commit.Status != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE conversations SET status = $1, updated_at = $2 WHERE thread_id = $3`,
			*commit.Status, s.now().UTC(), commit.ThreadID); err != nil {
			return nil, fmt.Errorf("failed to update conversation status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return messages, nil
}

// Ping checks the conversation database
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
