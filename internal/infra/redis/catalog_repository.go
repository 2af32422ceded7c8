package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"vocab-tiers-service/internal/catalog"
)

// CatalogLoader fetches the reference data from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// CatalogRepository caches the catalog document in Redis so instances share one
// copy, and falls back to a loader on cache miss.
// The document is stored as JSON: SET vocab:catalog {document}
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadCatalog lets the repository sit behind the in-process cache.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return r.Catalog(ctx)
}

func (r *CatalogRepository) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if cat, ok := r.cached(ctx); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.cached(ctx); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(cat.Document())
		if err != nil {
			return nil, err
		}
		// best-effort: a failed write only costs another load
		_ = r.client.Set(ctx, catalogKey, data, r.ttlWithJitter()).Err()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

// Invalidate removes the shared copy so every instance reloads.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *CatalogRepository) cached(ctx context.Context) (*catalog.Catalog, bool) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var doc catalog.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	cat, err := catalog.FromDocument(doc)
	if err != nil {
		return nil, false
	}
	return cat, true
}

const catalogKey = "vocab:catalog"

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
