package store

import (
	"context"
	"errors"

	"pulsewire.app/ingest/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SaveResult aggregates one SaveBatch call's per-post outcomes.
type SaveResult struct {
	Success int
	Skipped int
	Errors  int

	// SavedIDs lists the posts actually written, in input order, so
	// callers can hand them to downstream processing.
	SavedIDs []string
}

// PostStore defines the contract for post data access
type PostStore interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	BatchExists(ctx context.Context, ids []string) (map[string]struct{}, error)
	Create(ctx context.Context, post *model.Post) error
	SaveBatch(ctx context.Context, posts []model.Post, earlyStopThreshold int) (SaveResult, error)
}

// GroupStore defines the contract for duplicate-group data access
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*model.DuplicateGroup, error)
	FindByPost(ctx context.Context, postID string) (*model.DuplicateGroup, error)
	CreateWithMembers(ctx context.Context, group *model.DuplicateGroup) error
}

// SummaryStore defines the contract for summary-record data access
type SummaryStore interface {
	Create(ctx context.Context, record *model.SummaryRecord) error
	CreateBatch(ctx context.Context, records []model.SummaryRecord) error
	FindByPost(ctx context.Context, postID string) (*model.SummaryRecord, error)
	FindByContentHash(ctx context.Context, hash string) (*model.SummaryRecord, error)
}

// AccountStore defines the contract for tracked-account data access
type AccountStore interface {
	List(ctx context.Context, activeOnly bool) ([]model.TrackedAccount, error)
	Create(ctx context.Context, account *model.TrackedAccount) error
	Delete(ctx context.Context, handle string) error
}
