package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/model"
)

type summaryStore struct {
	db *db.DB
}

const summaryColumns = `id, post_id, summary, translation, provider, model,
	prompt_tokens, completion_tokens, total_tokens, cost, cached, is_generated,
	content_hash, created_at, updated_at`

const insertSummary = `INSERT INTO summaries
	(id, post_id, summary, translation, provider, model,
	 prompt_tokens, completion_tokens, total_tokens, cost, cached, is_generated, content_hash)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (post_id) DO UPDATE SET
		summary = EXCLUDED.summary,
		translation = EXCLUDED.translation,
		provider = EXCLUDED.provider,
		model = EXCLUDED.model,
		prompt_tokens = EXCLUDED.prompt_tokens,
		completion_tokens = EXCLUDED.completion_tokens,
		total_tokens = EXCLUDED.total_tokens,
		cost = EXCLUDED.cost,
		cached = EXCLUDED.cached,
		is_generated = EXCLUDED.is_generated,
		content_hash = EXCLUDED.content_hash,
		updated_at = now()`

func (s *summaryStore) Create(ctx context.Context, record *model.SummaryRecord) error {
	_, err := s.db.Pool().Exec(ctx, insertSummary,
		record.ID, record.PostID, record.Summary, record.Translation,
		record.Provider, record.Model, record.PromptTokens, record.CompletionTokens,
		record.TotalTokens, record.Cost, record.Cached, record.IsGenerated, record.ContentHash)
	if err != nil {
		return fmt.Errorf("inserting summary for %s: %w", record.PostID, err)
	}
	return nil
}

// CreateBatch writes the representative's record plus its fan-out rows
// inside one transaction, so a group either gets all its records or none.
func (s *summaryStore) CreateBatch(ctx context.Context, records []model.SummaryRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, record := range records {
			_, err := tx.Exec(ctx, insertSummary,
				record.ID, record.PostID, record.Summary, record.Translation,
				record.Provider, record.Model, record.PromptTokens, record.CompletionTokens,
				record.TotalTokens, record.Cost, record.Cached, record.IsGenerated, record.ContentHash)
			if err != nil {
				return fmt.Errorf("inserting summary for %s: %w", record.PostID, err)
			}
		}
		return nil
	})
}

func (s *summaryStore) FindByPost(ctx context.Context, postID string) (*model.SummaryRecord, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE post_id = $1`, postID)
	return scanSummary(row)
}

// FindByContentHash returns the newest record sharing the hash, used to
// rebuild cache state after restart.
func (s *summaryStore) FindByContentHash(ctx context.Context, hash string) (*model.SummaryRecord, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries
		 WHERE content_hash = $1 ORDER BY created_at DESC LIMIT 1`, hash)
	return scanSummary(row)
}

func scanSummary(row pgx.Row) (*model.SummaryRecord, error) {
	var record model.SummaryRecord
	err := row.Scan(&record.ID, &record.PostID, &record.Summary, &record.Translation,
		&record.Provider, &record.Model, &record.PromptTokens, &record.CompletionTokens,
		&record.TotalTokens, &record.Cost, &record.Cached, &record.IsGenerated,
		&record.ContentHash, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}
