package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/geoindex"
	"github.com/bmlt-enabled/tomato/internal/importer"
	"github.com/bmlt-enabled/tomato/internal/metrics"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
	"github.com/bmlt-enabled/tomato/internal/upstream"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run one federation import pass against every configured root server and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context())
	},
}

func runImport(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging)

	if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	pool, err := connectPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	geoIdx := geoindex.New()
	m, _ := metrics.New()

	fetcher := upstream.New(cfg.Import.FetchTimeout, cfg.Import.UserAgent)
	orch := importer.NewOrchestrator(fetcher, cfg.Import, logger).WithMetrics(m)

	logger.Info().Msg("starting one-shot federation import")
	if err := orch.RunAll(ctx, repo, geoIdx); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	logger.Info().Msg("import completed")
	return nil
}
