package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/model"
)

type groupStore struct {
	db *db.DB
}

func (s *groupStore) GetByID(ctx context.Context, id int64) (*model.DuplicateGroup, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT id, representative_id, kind, score, member_ids, created_at
		 FROM duplicate_groups WHERE id = $1`, id)

	group, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return group, nil
}

// FindByPost resolves the group a post belongs to via the post's
// group reference.
func (s *groupStore) FindByPost(ctx context.Context, postID string) (*model.DuplicateGroup, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT g.id, g.representative_id, g.kind, g.score, g.member_ids, g.created_at
		 FROM duplicate_groups g
		 JOIN posts p ON p.group_id = g.id
		 WHERE p.id = $1`, postID)

	group, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return group, nil
}

// CreateWithMembers persists the group and stamps every member post's
// group reference inside one transaction.
func (s *groupStore) CreateWithMembers(ctx context.Context, group *model.DuplicateGroup) error {
	if len(group.MemberIDs) == 0 {
		return fmt.Errorf("group %d has no members", group.ID)
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO duplicate_groups (id, representative_id, kind, score, member_ids)
			 VALUES ($1, $2, $3, $4, $5)`,
			group.ID, group.RepresentativeID, group.Kind, group.Score, group.MemberIDs)
		if err != nil {
			return fmt.Errorf("inserting group: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE posts SET group_id = $1 WHERE id = ANY($2)`,
			group.ID, group.MemberIDs)
		if err != nil {
			return fmt.Errorf("stamping member posts: %w", err)
		}

		return nil
	})
}

func scanGroup(row pgx.Row) (*model.DuplicateGroup, error) {
	var group model.DuplicateGroup
	err := row.Scan(&group.ID, &group.RepresentativeID, &group.Kind,
		&group.Score, &group.MemberIDs, &group.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &group, nil
}
