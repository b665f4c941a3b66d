package store

import (
	"pulsewire.app/ingest/core/db"
)

// Stores bundles every store over one shared connection pool.
type Stores struct {
	posts     PostStore
	groups    GroupStore
	summaries SummaryStore
	accounts  AccountStore
}

func NewStores(database *db.DB) *Stores {
	return &Stores{
		posts:     &postStore{db: database},
		groups:    &groupStore{db: database},
		summaries: &summaryStore{db: database},
		accounts:  &accountStore{db: database},
	}
}

func (s *Stores) Posts() PostStore { return s.posts }

func (s *Stores) Groups() GroupStore { return s.groups }

func (s *Stores) Summaries() SummaryStore { return s.summaries }

func (s *Stores) Accounts() AccountStore { return s.accounts }
