package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bmlt-enabled/tomato/internal/api"
	apihandlers "github.com/bmlt-enabled/tomato/internal/api/handlers"
	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/geocode"
	"github.com/bmlt-enabled/tomato/internal/geoindex"
	"github.com/bmlt-enabled/tomato/internal/importer"
	"github.com/bmlt-enabled/tomato/internal/jobs"
	"github.com/bmlt-enabled/tomato/internal/mcpserver"
	"github.com/bmlt-enabled/tomato/internal/metrics"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
	"github.com/bmlt-enabled/tomato/internal/telemetry"
	"github.com/bmlt-enabled/tomato/internal/translation"
	"github.com/bmlt-enabled/tomato/internal/upstream"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query gateway and periodic import scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting tomato server")

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

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
	if err := repo.RebuildGeoIndex(ctx, geoIdx); err != nil {
		logger.Warn().Err(err).Msg("initial geo index build failed; starting empty")
	}

	translations := translation.NewCache(postgres.NewTranslationLoader(repo))
	if err := translations.EnsureFresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial translation cache build failed")
	}

	m, reg := metrics.New()

	geocoder := buildGeocoder(cfg, logger)

	engine := query.NewEngine(pool, geoIdx, translations)
	handlers := apihandlers.New(engine, repo.ServiceBodies(), geocoder, repo.ServiceBodies(), repo.Formats(), repo.RootServers(), translations, logger)

	mcpSrv := mcpserver.NewServer(engine, repo.ServiceBodies(), geocoder, "tomato", Version)

	router := api.NewRouter(handlers, logger, m, reg, telemetry.Tracer("github.com/bmlt-enabled/tomato/internal/api"), mcpSrv.Handler())

	riverClient, err := startImportScheduler(ctx, repo, geoIdx, cfg, logger, m)
	if err != nil {
		return fmt.Errorf("start import scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river scheduler shutdown error")
		}
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(httpServer, logger)
}

// buildGeocoder wires the geocoder client, an optional Redis-backed
// cache layer (config.Redis), and the query.Geocoder adapter.
func buildGeocoder(cfg config.Config, logger zerolog.Logger) *geocode.QueryAdapter {
	client := geocode.New(cfg.Geocoding.Endpoint, cfg.Geocoding.APIKey, cfg.Geocoding.Timeout)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	caching, err := geocode.NewCachingClient(client, rdb, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("geocode cache init failed; falling back to uncached client")
		return geocode.NewQueryAdapter(client)
	}
	return geocode.NewQueryAdapter(caching)
}

// startImportScheduler starts the river client that runs the periodic
// federation import (spec C4) on the configured interval, with
// RunOnStart so a freshly deployed aggregator doesn't wait a full
// interval for its first catalog.
func startImportScheduler(ctx context.Context, repo *postgres.Repository, geoIdx *geoindex.Index, cfg config.Config, logger zerolog.Logger, m *metrics.Metrics) (*river.Client[pgx.Tx], error) {
	fetcher := upstream.New(cfg.Import.FetchTimeout, cfg.Import.UserAgent)
	var importerFetcher importer.Fetcher = fetcher

	workers := jobs.NewWorkers(repo, geoIdx, importerFetcher, cfg.Import, logger, m)
	periodicJobs := jobs.NewPeriodicJobs(cfg.Import.Interval)

	client, err := jobs.NewClient(repo.Pool(), workers, nil, periodicJobs)
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("start river client: %w", err)
	}
	logger.Info().Dur("interval", cfg.Import.Interval).Msg("import scheduler started")
	return client, nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
