package service_test

import (
	"context"
	"sync"
	"time"

	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/store"
	"pulsewire.app/ingest/internal/task"
	"pulsewire.app/ingest/internal/upstream"
)

func newRegistry() *task.Registry {
	return task.NewRegistry(time.Hour, task.SystemClock())
}

type mockPostStore struct {
	mu sync.Mutex

	getByIDFn     func(ctx context.Context, id string) (*model.Post, error)
	getByIDsFn    func(ctx context.Context, ids []string) ([]model.Post, error)
	existsFn      func(ctx context.Context, id string) (bool, error)
	batchExistsFn func(ctx context.Context, ids []string) (map[string]struct{}, error)
	createFn      func(ctx context.Context, post *model.Post) error
	saveBatchFn   func(ctx context.Context, posts []model.Post, threshold int) (store.SaveResult, error)

	saveBatchCalls int
}

func (m *mockPostStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockPostStore) GetByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockPostStore) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}

func (m *mockPostStore) BatchExists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if m.batchExistsFn != nil {
		return m.batchExistsFn(ctx, ids)
	}
	return map[string]struct{}{}, nil
}

func (m *mockPostStore) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}

func (m *mockPostStore) SaveBatch(ctx context.Context, posts []model.Post, threshold int) (store.SaveResult, error) {
	m.mu.Lock()
	m.saveBatchCalls++
	m.mu.Unlock()
	if m.saveBatchFn != nil {
		return m.saveBatchFn(ctx, posts, threshold)
	}
	return store.SaveResult{}, nil
}

type mockGroupStore struct {
	getByIDFn           func(ctx context.Context, id int64) (*model.DuplicateGroup, error)
	findByPostFn        func(ctx context.Context, postID string) (*model.DuplicateGroup, error)
	createWithMembersFn func(ctx context.Context, group *model.DuplicateGroup) error
}

func (m *mockGroupStore) GetByID(ctx context.Context, id int64) (*model.DuplicateGroup, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockGroupStore) FindByPost(ctx context.Context, postID string) (*model.DuplicateGroup, error) {
	if m.findByPostFn != nil {
		return m.findByPostFn(ctx, postID)
	}
	return nil, store.ErrNotFound
}

func (m *mockGroupStore) CreateWithMembers(ctx context.Context, group *model.DuplicateGroup) error {
	if m.createWithMembersFn != nil {
		return m.createWithMembersFn(ctx, group)
	}
	return nil
}

type mockSummaryStore struct {
	mu      sync.Mutex
	created []model.SummaryRecord

	createFn            func(ctx context.Context, record *model.SummaryRecord) error
	createBatchFn       func(ctx context.Context, records []model.SummaryRecord) error
	findByPostFn        func(ctx context.Context, postID string) (*model.SummaryRecord, error)
	findByContentHashFn func(ctx context.Context, hash string) (*model.SummaryRecord, error)
}

func (m *mockSummaryStore) Create(ctx context.Context, record *model.SummaryRecord) error {
	m.mu.Lock()
	m.created = append(m.created, *record)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, record)
	}
	return nil
}

func (m *mockSummaryStore) CreateBatch(ctx context.Context, records []model.SummaryRecord) error {
	m.mu.Lock()
	m.created = append(m.created, records...)
	m.mu.Unlock()
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, records)
	}
	return nil
}

func (m *mockSummaryStore) FindByPost(ctx context.Context, postID string) (*model.SummaryRecord, error) {
	if m.findByPostFn != nil {
		return m.findByPostFn(ctx, postID)
	}
	return nil, store.ErrNotFound
}

func (m *mockSummaryStore) FindByContentHash(ctx context.Context, hash string) (*model.SummaryRecord, error) {
	if m.findByContentHashFn != nil {
		return m.findByContentHashFn(ctx, hash)
	}
	return nil, store.ErrNotFound
}

func (m *mockSummaryStore) records() []model.SummaryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SummaryRecord, len(m.created))
	copy(out, m.created)
	return out
}

type mockAccountStore struct {
	listFn   func(ctx context.Context, activeOnly bool) ([]model.TrackedAccount, error)
	createFn func(ctx context.Context, account *model.TrackedAccount) error
	deleteFn func(ctx context.Context, handle string) error
}

func (m *mockAccountStore) List(ctx context.Context, activeOnly bool) ([]model.TrackedAccount, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockAccountStore) Create(ctx context.Context, account *model.TrackedAccount) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountStore) Delete(ctx context.Context, handle string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, handle)
	}
	return nil
}

type mockStores struct {
	posts     *mockPostStore
	groups    *mockGroupStore
	summaries *mockSummaryStore
	accounts  *mockAccountStore
}

func newMockStores() *mockStores {
	return &mockStores{
		posts:     &mockPostStore{},
		groups:    &mockGroupStore{},
		summaries: &mockSummaryStore{},
		accounts:  &mockAccountStore{},
	}
}

func (m *mockStores) Posts() store.PostStore        { return m.posts }
func (m *mockStores) Groups() store.GroupStore      { return m.groups }
func (m *mockStores) Summaries() store.SummaryStore { return m.summaries }
func (m *mockStores) Accounts() store.AccountStore  { return m.accounts }

type mockFetcher struct {
	mu      sync.Mutex
	calls   []string
	fetchFn func(ctx context.Context, account string, limit int) (*upstream.Envelope, error)
}

func (m *mockFetcher) FetchPosts(ctx context.Context, account string, limit int) (*upstream.Envelope, error) {
	m.mu.Lock()
	m.calls = append(m.calls, account)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, account, limit)
	}
	return &upstream.Envelope{Account: account}, nil
}

type mockProducer struct {
	mu        sync.Mutex
	messages  []queue.TaskMessage
	enqueueFn func(ctx context.Context, msg queue.TaskMessage) error
}

func (m *mockProducer) Enqueue(ctx context.Context, msg queue.TaskMessage) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) enqueued() []queue.TaskMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.TaskMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

type mockProvider struct {
	mu    sync.Mutex
	calls int

	name       string
	model      string
	completeFn func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
}

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return &llm.Completion{Text: `{"summary":"a summary"}`}, nil
}

func (m *mockProvider) Name() string  { return m.name }
func (m *mockProvider) Model() string { return m.model }

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
