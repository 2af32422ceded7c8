package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vocab-tiers-service/internal/catalog"
)

// CatalogLoader fetches the reference data from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// CatalogLoaderFunc adapts a function to CatalogLoader.
type CatalogLoaderFunc func(ctx context.Context) (*catalog.Catalog, error)

func (f CatalogLoaderFunc) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return f(ctx)
}

// CatalogRepository caches the catalog with a TTL to avoid repeated loads.
// A non-positive TTL caches forever.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    *catalog.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if cat, ok := r.fresh(r.clock()); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		if cat, ok := r.fresh(now); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = cat
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

// Invalidate drops the cached catalog; the next call reloads.
func (r *CatalogRepository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *CatalogRepository) fresh(now time.Time) (*catalog.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == nil {
		return nil, false
	}
	if r.ttl > 0 && !r.expiresAt.After(now) {
		return nil, false
	}
	return r.cached, true
}

// StaticCatalogLoader always returns the same catalog (embedded seed, tests).
type StaticCatalogLoader struct {
	cat *catalog.Catalog
}

func NewStaticCatalogLoader(cat *catalog.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{cat: cat}
}

func (l *StaticCatalogLoader) LoadCatalog(context.Context) (*catalog.Catalog, error) {
	return l.cat, nil
}

// FileCatalogLoader parses a YAML catalog on every load, so edits are
// picked up when the cache expires.
type FileCatalogLoader struct {
	path string
}

func NewFileCatalogLoader(path string) *FileCatalogLoader {
	return &FileCatalogLoader{path: path}
}

func (l *FileCatalogLoader) LoadCatalog(context.Context) (*catalog.Catalog, error) {
	return catalog.LoadFile(l.path)
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
