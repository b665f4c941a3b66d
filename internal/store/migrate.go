package store

import (
	"context"
	"fmt"

	"pulsewire.app/ingest/core/db"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id            TEXT PRIMARY KEY,
		text          TEXT NOT NULL,
		author_handle TEXT NOT NULL,
		author_name   TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		reference     JSONB,
		media         JSONB,
		quoted        JSONB,
		group_id      BIGINT,
		fetched_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_group_id ON posts (group_id) WHERE group_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_handle, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS duplicate_groups (
		id                BIGINT PRIMARY KEY,
		representative_id TEXT NOT NULL REFERENCES posts (id),
		kind              TEXT NOT NULL,
		score             DOUBLE PRECISION,
		member_ids        TEXT[] NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		id                BIGINT PRIMARY KEY,
		post_id           TEXT NOT NULL REFERENCES posts (id),
		summary           TEXT NOT NULL,
		translation       TEXT,
		provider          TEXT NOT NULL,
		model             TEXT NOT NULL,
		prompt_tokens     INT NOT NULL DEFAULT 0,
		completion_tokens INT NOT NULL DEFAULT 0,
		total_tokens      INT NOT NULL DEFAULT 0,
		cost              DOUBLE PRECISION NOT NULL DEFAULT 0,
		cached            BOOLEAN NOT NULL DEFAULT false,
		is_generated      BOOLEAN NOT NULL DEFAULT true,
		content_hash      TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_content_hash ON summaries (content_hash)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_post ON summaries (post_id)`,
	`CREATE TABLE IF NOT EXISTS tracked_accounts (
		handle       TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		active       BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema idempotently. Every statement uses
// IF NOT EXISTS so re-running on startup is safe.
func Migrate(ctx context.Context, database *db.DB) error {
	for i, stmt := range migrations {
		if _, err := database.Pool().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
