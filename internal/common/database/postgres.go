package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agri-evidence-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// evidenceSchema backs the record-evidence audit trail.
const evidenceSchema = `
CREATE TABLE IF NOT EXISTS evidence_records (
	id                UUID PRIMARY KEY,
	process_key       BIGINT NOT NULL,
	query             TEXT NOT NULL,
	total_sources     INTEGER NOT NULL,
	conflicts_found   INTEGER NOT NULL,
	high_severity     INTEGER NOT NULL,
	confidence_score  DOUBLE PRECISION,
	confidence_rating TEXT,
	report            JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS evidence_records_created_at_idx ON evidence_records (created_at);
`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema creates the evidence tables when missing.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, evidenceSchema); err != nil {
		return fmt.Errorf("failed to create evidence schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
