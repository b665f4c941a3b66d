package store

import (
	"context"
	"fmt"

	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/model"
)

type accountStore struct {
	db *db.DB
}

func (s *accountStore) List(ctx context.Context, activeOnly bool) ([]model.TrackedAccount, error) {
	query := `SELECT handle, display_name, active, created_at FROM tracked_accounts`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY handle`

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.TrackedAccount
	for rows.Next() {
		var a model.TrackedAccount
		if err := rows.Scan(&a.Handle, &a.DisplayName, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *accountStore) Create(ctx context.Context, account *model.TrackedAccount) error {
	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO tracked_accounts (handle, display_name, active)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (handle) DO UPDATE SET display_name = EXCLUDED.display_name, active = EXCLUDED.active`,
		account.Handle, account.DisplayName, account.Active)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", account.Handle, err)
	}
	return nil
}

func (s *accountStore) Delete(ctx context.Context, handle string) error {
	tag, err := s.db.Pool().Exec(ctx,
		`DELETE FROM tracked_accounts WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", handle, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
