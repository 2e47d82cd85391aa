package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL,
		price       NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		image_url   TEXT NOT NULL DEFAULT '',
		quantity    INTEGER NOT NULL DEFAULT 0,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		view_count  BIGINT NOT NULL DEFAULT 0,
		sales_count BIGINT NOT NULL DEFAULT 0,
		created_by  TEXT NOT NULL DEFAULT '',
		embedding   REAL[],
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`DROP INDEX IF EXISTS idx_products_category_lower`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_norm ON products (lower(btrim(category)))`,
	`CREATE INDEX IF NOT EXISTS idx_products_view_count ON products (view_count DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_products_sales_count ON products (sales_count DESC)`,
	`CREATE TABLE IF NOT EXISTS product_recommendations (
		product_id           TEXT PRIMARY KEY,
		recommended_products TEXT[] NOT NULL DEFAULT '{}',
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsurePostgresSchema creates the catalog and co-occurrence tables if they
// do not exist yet.
func EnsurePostgresSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply postgres schema: %w", err)
		}
	}
	return nil
}

const clickHouseActivitySchema = `
	CREATE TABLE IF NOT EXISTS user_activity (
		activity_id String,
		user_id     String,
		product_id  String,
		action      LowCardinality(String),
		timestamp   DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	ORDER BY (user_id, timestamp)
`

// EnsureClickHouseSchema creates the user activity log table.
func EnsureClickHouseSchema(ctx context.Context, conn clickhouse.Conn) error {
	if err := conn.Exec(ctx, clickHouseActivitySchema); err != nil {
		return fmt.Errorf("failed to apply clickhouse schema: %w", err)
	}
	return nil
}
