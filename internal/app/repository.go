package app

import (
	"context"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// CatalogRepository serves the reference data (cached, file-backed or from Postgres).
type CatalogRepository interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// LedgerRepository persists per-user ledgers (in-memory, Redis, Postgres, SQLite).
//
// Update is the per-user critical section: fn sees the latest stored ledger
// (a fresh one when none exists) and its result is stored only if fn returns
// nil. Two Updates for the same user never interleave.
type LedgerRepository interface {
	Load(ctx context.Context, userID string) (domain.Ledger, error)
	Update(ctx context.Context, userID string, fn func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error)
	UserIDs(ctx context.Context) ([]string, error)
}

// SessionRepository abstracts where live quiz sessions are kept.
type SessionRepository interface {
	Save(ctx context.Context, session *LiveSession) error
	Get(ctx context.Context, id string) (*LiveSession, bool)
	Delete(ctx context.Context, id string)
}
