package service

import "pulsewire.app/ingest/internal/store"

// StoreProvider is the slice of the store factory services depend on.
// *store.Stores satisfies it; tests substitute mocks.
type StoreProvider interface {
	Posts() store.PostStore
	Groups() store.GroupStore
	Summaries() store.SummaryStore
	Accounts() store.AccountStore
}
