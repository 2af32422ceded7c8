package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/audio"
	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/config"
	"vocab-tiers-service/internal/infra/memory"
	pgstore "vocab-tiers-service/internal/infra/postgres"
	redisstore "vocab-tiers-service/internal/infra/redis"
	"vocab-tiers-service/internal/infra/sqlite"
)

// backends holds the optional external connections. Any of them may be nil.
type backends struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	sqlite *sqlite.LedgerStore
	logger *slog.Logger
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{logger: logger}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.SQLite.Path != "" && b.pool == nil && b.redis == nil {
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sqlite = store
	}
	return b, nil
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("close redis", "err", err)
		}
	}
	if b.sqlite != nil {
		if err := b.sqlite.Close(); err != nil {
			b.logger.Warn("close sqlite", "err", err)
		}
	}
}

// catalogs layers the in-process cache over Redis (when configured) over the
// source of truth: Postgres, a YAML file, or the built-in seed.
func (b *backends) catalogs(cfg config.Config) *memory.CatalogRepository {
	ttl := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)

	var loader memory.CatalogLoader
	switch {
	case b.pool != nil:
		loader = pgstore.NewCatalogLoader(b.pool)
	case cfg.Catalog.Path != "":
		loader = memory.NewFileCatalogLoader(cfg.Catalog.Path)
	default:
		loader = memory.CatalogLoaderFunc(func(context.Context) (*catalog.Catalog, error) {
			return catalog.Default()
		})
	}
	if b.redis != nil {
		loader = redisstore.NewCatalogRepository(b.redis, loader, config.TTLDuration(cfg.Redis.TTL, ttl))
	}
	return memory.NewCatalogRepository(loader, ttl)
}

func (b *backends) ledgers() app.LedgerRepository {
	switch {
	case b.pool != nil:
		return pgstore.NewLedgerStore(b.pool)
	case b.redis != nil:
		return redisstore.NewLedgerStore(b.redis)
	case b.sqlite != nil:
		return b.sqlite
	}
	b.logger.Warn("no ledger store configured, progress is kept in memory only")
	return memory.NewLedgerStore()
}

func (b *backends) sessions(cfg config.Config) app.SessionRepository {
	ttl := config.TTLDuration(cfg.Quiz.SessionTTL, 30*time.Minute)
	if b.redis != nil {
		return redisstore.NewSessionStore(b.redis, ttl)
	}
	return memory.NewSessionStore(ttl)
}

// speech returns nil when no synthesis endpoint is configured.
func (b *backends) speech(cfg config.Config) audio.Synthesizer {
	if cfg.Audio.Endpoint == "" {
		return nil
	}
	var cache audio.Cache = memory.NewAudioCache()
	if b.redis != nil {
		cache = redisstore.NewAudioCache(b.redis)
	}
	ttl := config.TTLDuration(cfg.Audio.CacheTTL, audio.DefaultCacheTTL)
	return audio.NewCachedSynthesizer(audio.NewHTTPSynthesizer(cfg.Audio.Endpoint, 20*time.Second), cache, ttl, b.logger)
}
