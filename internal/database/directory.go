package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"supportdesk/internal/models"

	"github.com/jmoiron/sqlx"
)

// Directory reads contact sessions and subscriptions from the platform database.
// Every query runs inside a transaction that is rolled back.
type Directory struct {
	db *sqlx.DB
}

// NewDirectory creates a directory over a read-only platform connection
func NewDirectory(db *sqlx.DB) *Directory {
	return &Directory{db: db}
}

// GetContactSession returns nil when the session does not exist
func (d *Directory) GetContactSession(ctx context.Context, id string) (*models.ContactSession, error) {
	var session models.ContactSession
	query := d.db.Rebind(`
		SELECT id, organization_id, name, email, expires_at
		FROM contact_sessions
		WHERE id = ?`)
	err := ExecuteReadOnlyQuerySingle(ctx, d.db, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}
	return &session, nil
}

// GetSubscriptionByOrganizationID returns nil when the organization has no subscription
func (d *Directory) GetSubscriptionByOrganizationID(ctx context.Context, organizationID string) (*models.Subscription, error) {
	var subscription models.Subscription
	query := d.db.Rebind(`
		SELECT organization_id, status
		FROM subscriptions
		WHERE organization_id = ?
		LIMIT 1`)
	err := ExecuteReadOnlyQuerySingle(ctx, d.db, &subscription, query, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &subscription, nil
}

// Ping checks the platform database inside a read-only transaction
func (d *Directory) Ping(ctx context.Context) error {
	return ExecuteReadOnlyPing(ctx, d.db)
}
