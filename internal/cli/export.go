package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
	"vocab-tiers-service/internal/export"
)

// NewExportCmd writes a filtered word list as xlsx or csv.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		tier     int
		category string
		query    string
		format   string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog words to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			cat, err := b.catalogs(cfg).Catalog(ctx)
			if err != nil {
				return err
			}
			words := cat.Words(catalog.Filter{
				Tier:     domain.TierID(tier),
				Category: domain.Category(category),
				Query:    query,
			})

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := export.Write(w, f, words); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			logger.Info("export written", "words", len(words), "format", f, "out", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&tier, "tier", 0, "only words of this tier")
	cmd.Flags().StringVar(&category, "category", "", "only words of this category")
	cmd.Flags().StringVar(&query, "query", "", "case-insensitive text search")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or csv")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	return cmd
}
