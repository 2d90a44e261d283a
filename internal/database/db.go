package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // platform DB may be MySQL
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // conversation store and platform DB on PostgreSQL
	"github.com/rs/zerolog"
)

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
)

// DriverFor detects the sql driver from a database URL
func DriverFor(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return driverPostgres
	}
	return driverMySQL
}

// New creates a read-only connection to the platform database (MySQL or PostgreSQL)
func New(databaseURL string, logger zerolog.Logger) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	driver := DriverFor(databaseURL)
	db, err := sqlx.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The platform database owns contact sessions and billing; this service only reads it
	if driver == driverMySQL {
		if _, err := db.Exec("SET SESSION TRANSACTION READ ONLY"); err != nil {
			logger.Warn().Err(err).Msg("Could not set MySQL session to read-only; ensure the user has SELECT-only privileges")
		} else {
			logger.Info().Msg("MySQL session set to READ ONLY mode")
		}
	}

	return db, nil
}

// ExecuteReadOnlyQuerySingle executes a single-row query within a transaction that is always rolled back
func ExecuteReadOnlyQuerySingle(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args ...interface{}) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // never committed

	if err := tx.GetContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to execute read-only query: %w", err)
	}
	return nil
}

// ExecuteReadOnlyPing executes a ping within a read-only transaction
func ExecuteReadOnlyPing(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // never committed

	var result int
	if err := tx.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("failed to execute read-only ping query: %w", err)
	}
	return nil
}
