package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vocab-tiers-service/internal/domain"
)

// LedgerStore persists ledgers as JSONB rows. Update locks the user's row with
// SELECT ... FOR UPDATE for the length of one transaction.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) Load(ctx context.Context, userID string) (domain.Ledger, error) {
	return loadLedger(ctx, s.pool, userID, `SELECT data FROM ledgers WHERE user_id = $1`)
}

func (s *LedgerStore) Update(ctx context.Context, userID string, fn func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error) {
	var current, next domain.Ledger
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		// Make sure a row exists so the lock below always has something to hold.
		fresh, err := json.Marshal(domain.NewLedger(userID))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO ledgers (user_id, data) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`, userID, fresh); err != nil {
			return err
		}

		current, err = loadLedger(ctx, tx, userID, `SELECT data FROM ledgers WHERE user_id = $1 FOR UPDATE`)
		if err != nil {
			return err
		}
		next, err = fn(current.Clone())
		if err != nil {
			return err
		}
		next.UserID = userID
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE ledgers SET data = $2, updated_at = now() WHERE user_id = $1`, userID, data)
		return err
	})
	if err != nil {
		return current, err
	}
	return next, nil
}

func (s *LedgerStore) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM ledgers ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func loadLedger(ctx context.Context, q rowQuerier, userID, query string) (domain.Ledger, error) {
	var raw []byte
	err := q.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewLedger(userID), nil
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load ledger %s: %w", userID, err)
	}
	var l domain.Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return domain.Ledger{}, fmt.Errorf("unmarshal ledger %s: %w", userID, err)
	}
	l.Normalize()
	return l, nil
}
