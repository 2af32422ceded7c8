package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vocab-tiers-service/internal/catalog"
)

// CatalogLoader loads the catalog JSONB rows from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var doc catalog.Document
	if err := scanJSON(ctx, l.pool, `SELECT data FROM tiers ORDER BY id`, &doc.Tiers); err != nil {
		return nil, fmt.Errorf("load tiers: %w", err)
	}
	if err := scanJSON(ctx, l.pool, `SELECT data FROM words ORDER BY position`, &doc.Words); err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	if err := scanJSON(ctx, l.pool, `SELECT data FROM badges ORDER BY position`, &doc.Badges); err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return catalog.FromDocument(doc)
}

func scanJSON[T any](ctx context.Context, pool *pgxpool.Pool, query string, out *[]T) error {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("unmarshal row: %w", err)
		}
		*out = append(*out, item)
	}
	return rows.Err()
}

// SeedCatalog replaces the catalog tables with doc in one transaction. The
// document is validated first so a bad file never reaches the database.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, doc catalog.Document) error {
	if _, err := catalog.FromDocument(doc); err != nil {
		return err
	}
	return pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM words`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM badges`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tiers`); err != nil {
			return err
		}
		for _, t := range doc.Tiers {
			if err := insertJSON(ctx, tx, `INSERT INTO tiers (id, data) VALUES ($1, $2)`, t, int(t.ID)); err != nil {
				return fmt.Errorf("tier %d: %w", t.ID, err)
			}
		}
		for i, w := range doc.Words {
			if err := insertJSON(ctx, tx, `INSERT INTO words (id, position, tier_id, data) VALUES ($1, $2, $3, $4)`, w, string(w.ID), i, int(w.Tier)); err != nil {
				return fmt.Errorf("word %s: %w", w.ID, err)
			}
		}
		for i, b := range doc.Badges {
			if err := insertJSON(ctx, tx, `INSERT INTO badges (id, position, data) VALUES ($1, $2, $3)`, b, string(b.ID), i); err != nil {
				return fmt.Errorf("badge %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// insertJSON appends the JSON encoding of v as the last query argument.
func insertJSON(ctx context.Context, tx pgx.Tx, query string, v any, args ...any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, append(args, data)...)
	return err
}
