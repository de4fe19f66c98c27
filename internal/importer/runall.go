package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
	"github.com/bmlt-enabled/tomato/internal/geoindex"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
)

func rootServerFromDiscovery(d rootservers.DiscoveredRoot) rootservers.RootServer {
	return rootservers.RootServer{URL: d.RootURL, Name: d.Name}
}

// RunAll executes one full aggregation pass: discover the configured
// root list, reconcile it against the stored root servers, then import
// each stored root in its own transaction, isolating one root's failure
// from the rest (spec §4.4, §7 item 4). The in-process geospatial index
// is rebuilt once at the end against the now-current store state.
func (o *Orchestrator) RunAll(ctx context.Context, repo *postgres.Repository, geoIdx *geoindex.Index) (runErr error) {
	start := time.Now()
	var failures int
	defer func() {
		if o.metrics == nil {
			return
		}
		o.metrics.ImportDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if runErr != nil {
			outcome = "failed"
		} else if failures > 0 {
			outcome = "partial"
		}
		o.metrics.ImportRunsTotal.WithLabelValues(outcome).Inc()
	}()

	if o.cfg.RootListURL != "" {
		discovered, err := discoverRoots(ctx, o.fetcher, o.cfg.RootListURL, ignoredSet(o.cfg.IgnoredRootURLs))
		if err != nil {
			return fmt.Errorf("discover roots: %w", err)
		}
		keepURLs := make([]string, 0, len(discovered))
		for _, d := range discovered {
			if _, err := repo.RootServers().Upsert(ctx, rootServerFromDiscovery(d)); err != nil {
				return fmt.Errorf("upsert discovered root %s: %w", d.RootURL, err)
			}
			keepURLs = append(keepURLs, d.RootURL)
		}
		if err := repo.RootServers().DeleteMissing(ctx, keepURLs); err != nil {
			return fmt.Errorf("reconcile root list: %w", err)
		}
	}

	roots, err := repo.RootServers().List(ctx)
	if err != nil {
		return fmt.Errorf("list root servers: %w", err)
	}

	for _, root := range roots {
		err := repo.WithTx(ctx, func(ctx context.Context, txRepo *postgres.Repository) error {
			return o.ImportRoot(ctx, txRepo, root)
		})
		if err != nil {
			failures++
			o.logger.Error().Err(err).Int("root_server_id", root.ID).Str("url", root.URL).Msg("root import failed")
			if o.metrics != nil {
				o.metrics.ImportRootsTotal.WithLabelValues("failed").Inc()
			}
			if isDatabaseError(err) {
				// A connection-level failure can poison other pooled
				// connections with stale server state; reset the pool
				// so the next root starts clean (spec §7 item 4).
				repo.Pool().Reset()
			}
			continue
		}
		if o.metrics != nil {
			o.metrics.ImportRootsTotal.WithLabelValues("success").Inc()
		}
	}

	if err := repo.RebuildGeoIndex(ctx, geoIdx); err != nil {
		return fmt.Errorf("rebuild geo index: %w", err)
	}

	if failures == len(roots) && len(roots) > 0 {
		return fmt.Errorf("all %d root imports failed", failures)
	}
	return nil
}

func isDatabaseError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
