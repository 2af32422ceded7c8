package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vocab-tiers-service/internal/catalog"
	pgstore "vocab-tiers-service/internal/infra/postgres"
	redisstore "vocab-tiers-service/internal/infra/redis"
)

// NewSeedCmd loads a catalog document into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the Postgres catalog with a YAML document (built-in vocabulary by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			var cat *catalog.Catalog
			if file != "" {
				cat, err = catalog.LoadFile(file)
			} else {
				cat, err = catalog.Default()
			}
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
				return err
			}
			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := pgstore.SeedCatalog(ctx, b.pool, cat.Document()); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			if b.redis != nil {
				// Drop the shared copy so every instance reloads on its next TTL expiry.
				if err := redisstore.NewCatalogRepository(b.redis, nil, 0).Invalidate(ctx); err != nil {
					logger.Warn("invalidate redis catalog", "err", err)
				}
			}
			logger.Info("catalog seeded", "words", cat.Len(), "tiers", len(cat.Tiers()), "badges", len(cat.Badges()))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML file (defaults to the built-in vocabulary)")
	return cmd
}
