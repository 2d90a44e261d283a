package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// NewWriteClient connects to the writable conversation database (PostgreSQL)
func NewWriteClient(databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("CONVERSATIONS_DATABASE_URL environment variable not set")
	}
	if DriverFor(databaseURL) != driverPostgres {
		return nil, fmt.Errorf("conversation database must be PostgreSQL")
	}

	db, err := sqlx.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping conversation database: %w", err)
	}

	return db, nil
}
