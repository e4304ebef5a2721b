package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stock_allocations (
		sku         TEXT NOT NULL,
		order_id    TEXT NOT NULL,
		units       INT NOT NULL CHECK (units > 0),
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		user_id     TEXT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (sku, order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sku_stock_levels (
		sku        TEXT PRIMARY KEY,
		units      INT NOT NULL CHECK (units >= 0),
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS domain_events (
		subject_id   TEXT NOT NULL,
		event_name   TEXT NOT NULL,
		event_data   JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ,
		relay_id     TEXT,
		lease_until  TIMESTAMPTZ,
		PRIMARY KEY (subject_id, event_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_domain_events_unpublished
		ON domain_events (created_at) WHERE published_at IS NULL`,
}

// EnsureSchema creates the ledger and event tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
