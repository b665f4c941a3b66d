package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/model"
)

type postStore struct {
	db *db.DB
}

const postColumns = `id, text, author_handle, author_name, created_at, reference, media, quoted, group_id, fetched_at`

func (s *postStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postStore) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (s *postStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking post existence: %w", err)
	}
	return exists, nil
}

// BatchExists returns the subset of ids already stored, as a set.
// Input order is irrelevant and duplicates collapse.
func (s *postStore) BatchExists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return batchExists(ctx, ids, s.queryExistingIDs)
}

func (s *postStore) queryExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id FROM posts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("batch existence check: %w", err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

func batchExists(
	ctx context.Context,
	ids []string,
	query func(ctx context.Context, ids []string) ([]string, error),
) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	found, err := query(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(found))
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

func (s *postStore) Create(ctx context.Context, post *model.Post) error {
	reference, media, quoted, err := marshalPostJSON(post)
	if err != nil {
		return err
	}

	_, err = s.db.Pool().Exec(ctx,
		`INSERT INTO posts (id, text, author_handle, author_name, created_at, reference, media, quoted, group_id, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.Text, post.AuthorHandle, post.AuthorName, post.CreatedAt,
		reference, media, quoted, post.GroupID, post.FetchedAt)
	if err != nil {
		return fmt.Errorf("inserting post %s: %w", post.ID, err)
	}
	return nil
}

// SaveBatch persists posts in caller-supplied order (assumed newest
// first). Already-stored posts are skipped; once earlyStopThreshold
// consecutive skips are observed the remainder of the batch is marked
// skipped without further existence checks, bounding the cost of
// rescanning an unchanged feed. A threshold of 0 disables the
// optimization. Per-post write failures are counted, not fatal.
func (s *postStore) SaveBatch(ctx context.Context, posts []model.Post, earlyStopThreshold int) (SaveResult, error) {
	return runSaveBatch(ctx, posts, earlyStopThreshold, s.Exists, s.Create)
}

func runSaveBatch(
	ctx context.Context,
	posts []model.Post,
	earlyStopThreshold int,
	exists func(ctx context.Context, id string) (bool, error),
	create func(ctx context.Context, post *model.Post) error,
) (SaveResult, error) {
	var result SaveResult
	consecutiveSeen := 0

	for i, post := range posts {
		known, err := exists(ctx, post.ID)
		if err != nil {
			return result, fmt.Errorf("existence check for %s: %w", post.ID, err)
		}

		if known {
			result.Skipped++
			consecutiveSeen++

			if earlyStopThreshold > 0 && consecutiveSeen >= earlyStopThreshold {
				// The feed below this point is assumed unchanged.
				result.Skipped += len(posts) - i - 1
				slog.DebugContext(ctx, "early stop triggered",
					"consecutive_seen", consecutiveSeen,
					"remaining_skipped", len(posts)-i-1)
				break
			}
			continue
		}

		consecutiveSeen = 0

		if err := create(ctx, &post); err != nil {
			slog.ErrorContext(ctx, "saving post failed", "post_id", post.ID, "error", err)
			result.Errors++
			continue
		}
		result.Success++
		result.SavedIDs = append(result.SavedIDs, post.ID)
	}

	return result, nil
}

func marshalPostJSON(post *model.Post) (reference, media, quoted []byte, err error) {
	if post.Reference != nil {
		if reference, err = json.Marshal(post.Reference); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal reference: %w", err)
		}
	}
	if len(post.Media) > 0 {
		if media, err = json.Marshal(post.Media); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal media: %w", err)
		}
	}
	if post.Quoted != nil {
		if quoted, err = json.Marshal(post.Quoted); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal quoted: %w", err)
		}
	}
	return reference, media, quoted, nil
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		post      model.Post
		reference []byte
		media     []byte
		quoted    []byte
	)

	err := row.Scan(&post.ID, &post.Text, &post.AuthorHandle, &post.AuthorName,
		&post.CreatedAt, &reference, &media, &quoted, &post.GroupID, &post.FetchedAt)
	if err != nil {
		return nil, err
	}

	if len(reference) > 0 {
		if err := json.Unmarshal(reference, &post.Reference); err != nil {
			return nil, fmt.Errorf("unmarshal reference: %w", err)
		}
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, fmt.Errorf("unmarshal media: %w", err)
		}
	}
	if len(quoted) > 0 {
		if err := json.Unmarshal(quoted, &post.Quoted); err != nil {
			return nil, fmt.Errorf("unmarshal quoted: %w", err)
		}
	}

	return &post, nil
}
