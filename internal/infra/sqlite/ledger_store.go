// Package sqlite keeps ledgers in a local SQLite file. It backs offline runs
// where neither Postgres nor Redis is configured.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"vocab-tiers-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
	user_id    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

type LedgerStore struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating the parent directory and the
// ledgers table when missing.
func Open(path string) (*LedgerStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// SQLite has a single writer; one connection also makes every
	// transaction below exclusive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledgers table: %w", err)
	}
	return &LedgerStore{db: db}, nil
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

func (s *LedgerStore) Load(ctx context.Context, userID string) (domain.Ledger, error) {
	return loadLedger(ctx, s.db, userID)
}

func (s *LedgerStore) Update(ctx context.Context, userID string, fn func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Ledger{}, err
	}
	defer tx.Rollback()

	current, err := loadLedger(ctx, tx, userID)
	if err != nil {
		return domain.Ledger{}, err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return current, err
	}
	next.UserID = userID
	data, err := json.Marshal(next)
	if err != nil {
		return current, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers (user_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data))
	if err != nil {
		return current, fmt.Errorf("save ledger %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return current, err
	}
	return next, nil
}

func (s *LedgerStore) UserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM ledgers ORDER BY user_id`); err != nil {
		return nil, err
	}
	return ids, nil
}

func loadLedger(ctx context.Context, q sqlx.QueryerContext, userID string) (domain.Ledger, error) {
	var raw string
	err := sqlx.GetContext(ctx, q, &raw, `SELECT data FROM ledgers WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewLedger(userID), nil
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load ledger %s: %w", userID, err)
	}
	var l domain.Ledger
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return domain.Ledger{}, fmt.Errorf("unmarshal ledger %s: %w", userID, err)
	}
	l.Normalize()
	return l, nil
}
