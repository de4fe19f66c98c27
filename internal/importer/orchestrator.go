// Package importer implements the per-root synchronization pipeline
// (spec C4, §4.4): discover roots, reconcile the root set, then for
// each root run bodies -> formats -> meetings in one transaction,
// isolating failures to that root.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/domain/formats"
	"github.com/bmlt-enabled/tomato/internal/domain/importproblems"
	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
	"github.com/bmlt-enabled/tomato/internal/metrics"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
)

// Orchestrator runs the per-root import state machine described in
// spec §4.4: Discover -> Reconcile roots -> (per root) Import bodies ->
// Import formats -> Import meetings -> Recount -> Mark success.
type Orchestrator struct {
	fetcher Fetcher
	cfg     config.ImportConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewOrchestrator(fetcher Fetcher, cfg config.ImportConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, cfg: cfg, logger: logger}
}

// WithMetrics attaches a metrics sink; nil-safe when unset so tests and
// the standalone import command can skip prometheus wiring entirely.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// ImportRoot runs one root's full pipeline against a transaction-scoped
// repository (spec §4.4: "inside one transaction"). Per-record
// failures (malformed fields, unresolved FKs, per-meeting save errors)
// are recorded as ImportProblem rows and do not abort the root; only an
// upstream transport failure or a database error returned from repo
// itself propagates up to abort the whole root's transaction.
func (o *Orchestrator) ImportRoot(ctx context.Context, repo *postgres.Repository, root rootservers.RootServer) error {
	if err := repo.ImportProblems().ClearForRootServer(ctx, root.ID); err != nil {
		return fmt.Errorf("clear import problems: %w", err)
	}

	info, err := fetchServerInfo(ctx, o.fetcher, root.URL)
	if err != nil {
		return fmt.Errorf("fetch server info: %w", err)
	}
	if _, err := repo.RootServers().Upsert(ctx, rootservers.RootServer{URL: root.URL, Name: root.Name, ServerInfo: info}); err != nil {
		return fmt.Errorf("upsert root server info: %w", err)
	}

	resolver := newRootResolver()

	if err := o.importBodies(ctx, repo, root, resolver); err != nil {
		return err
	}
	if err := o.importFormats(ctx, repo, root, info, resolver); err != nil {
		return err
	}
	if err := o.importMeetings(ctx, repo, root, resolver); err != nil {
		return err
	}
	if o.cfg.NAWSDumpEnabled {
		if err := o.mergeNAWSDump(ctx, repo, root, resolver); err != nil {
			// A transport failure fetching the supplementary dump
			// degrades gracefully: the primary import already
			// succeeded, so log and proceed rather than discard it.
			o.logger.Warn().Err(err).Int("root_server_id", root.ID).Msg("naws dump merge failed")
		}
	}

	return o.recount(ctx, repo, root.ID)
}

func (o *Orchestrator) importBodies(ctx context.Context, repo *postgres.Repository, root rootservers.RootServer, resolver *rootResolver) error {
	raw, err := fetchServiceBodies(ctx, o.fetcher, root.URL)
	if err != nil {
		return fmt.Errorf("fetch service bodies: %w", err)
	}

	ignored := ignoredBodySet(o.cfg.IgnoredBodyIDs[root.URL])

	var valid []servicebodies.ServiceBody
	for _, r := range raw {
		body, failure := servicebodies.Validate(root.ID, r)
		if failure != nil {
			o.recordProblem(ctx, repo, root.ID, failure.Reason, r)
			continue
		}
		if ignored[body.SourceID] {
			continue
		}
		valid = append(valid, body)
	}

	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, root.ID, valid)
	if err != nil {
		return fmt.Errorf("replace service bodies: %w", err)
	}
	for _, b := range valid {
		localID := idBySourceID[b.SourceID]
		resolver.serviceBodyBySourceID[b.SourceID] = localID
		if b.WorldID != "" {
			resolver.serviceBodyByWorldID[b.WorldID] = localID
		}
	}
	return nil
}

func (o *Orchestrator) importFormats(ctx context.Context, repo *postgres.Repository, root rootservers.RootServer, info rootservers.ServerInfo, resolver *rootResolver) error {
	langs := info.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	byFormatSourceID := make(map[int]formats.Format)
	var translations []formats.TranslatedFormat

	for _, lang := range langs {
		raw, err := fetchFormats(ctx, o.fetcher, root.URL, lang)
		if err != nil {
			return fmt.Errorf("fetch formats(%s): %w", lang, err)
		}
		for _, r := range raw {
			f, tf, failure := formats.Validate(root.ID, r)
			if failure != nil {
				o.recordProblem(ctx, repo, root.ID, failure.Reason, r)
				continue
			}
			if _, ok := byFormatSourceID[f.SourceID]; !ok {
				byFormatSourceID[f.SourceID] = f
			}
			tf.FormatID = f.SourceID // keyed by source id until ReplaceAll resolves local ids
			translations = append(translations, tf)
		}
	}

	pairs := make([]formats.Format, 0, len(byFormatSourceID))
	for _, f := range byFormatSourceID {
		pairs = append(pairs, f)
	}

	idBySourceID, err := repo.Formats().ReplaceAll(ctx, root.ID, pairs, translations)
	if err != nil {
		return fmt.Errorf("replace formats: %w", err)
	}
	for sourceID, localID := range idBySourceID {
		resolver.formatBySourceID[sourceID] = localID
	}
	for _, tf := range translations {
		if localID, ok := idBySourceID[tf.FormatID]; ok {
			resolver.addFormatTranslation(localID, tf.Language, tf.KeyString)
		}
	}
	return nil
}

func (o *Orchestrator) importMeetings(ctx context.Context, repo *postgres.Repository, root rootservers.RootServer, resolver *rootResolver) error {
	raw, err := fetchMeetings(ctx, o.fetcher, root.URL)
	if err != nil {
		return fmt.Errorf("fetch meetings: %w", err)
	}

	var keepSourceIDs []int
	for _, r := range raw {
		if id, f := parseSourceID(r.ID); f {
			keepSourceIDs = append(keepSourceIDs, id)
		}

		m, failure := meetings.Validate(root.ID, r, resolver)
		if failure != nil {
			o.recordProblem(ctx, repo, root.ID, failure.Reason, r)
			continue
		}
		info := meetings.BuildInfo(0, r)
		if _, err := repo.Meetings().Upsert(ctx, m, info); err != nil {
			// Per-meeting save failure (spec §7 item 2): log and
			// continue with the rest of the batch.
			o.recordProblem(ctx, repo, root.ID, "Save failed: "+err.Error(), r)
			continue
		}
	}

	return repo.Meetings().MarkMissingDeleted(ctx, root.ID, keepSourceIDs, string(meetings.SourcePrimary))
}

func (o *Orchestrator) mergeNAWSDump(ctx context.Context, repo *postgres.Repository, root rootservers.RootServer, resolver *rootResolver) error {
	primaryIDs := make(map[int]bool)
	// The primary pass already wrote the keep-set as "not deleted"
	// primary-source meetings; reload it so the dump merge only
	// considers bmlt_ids absent from the primary list (spec §4.4:
	// "rows whose bmlt_id is not already present").
	ids, err := repo.Meetings().PrimarySourceIDs(ctx, root.ID)
	if err != nil {
		return fmt.Errorf("load primary source ids: %w", err)
	}
	for _, id := range ids {
		primaryIDs[id] = true
	}

	var dumpKeepIDs []int
	for sourceID := range resolver.serviceBodyBySourceID {
		rows, err := fetchNAWSDump(ctx, o.fetcher, root.URL, sourceID)
		if err != nil {
			return fmt.Errorf("fetch naws dump for body %d: %w", sourceID, err)
		}
		for _, row := range rows {
			if !isUnpublishedOrDeleted(row) {
				continue
			}
			id, f := parseSourceID(row.BMLTID)
			if !f || primaryIDs[id] {
				continue
			}

			m, info, failure := meetings.ValidateDumpRow(root.ID, row, resolver)
			if failure != nil {
				o.recordProblem(ctx, repo, root.ID, failure.Reason, row)
				continue
			}
			if _, err := repo.Meetings().Upsert(ctx, m, info); err != nil {
				o.recordProblem(ctx, repo, root.ID, "Save failed: "+err.Error(), row)
				continue
			}
			dumpKeepIDs = append(dumpKeepIDs, id)
		}
	}

	return repo.Meetings().MarkMissingDeleted(ctx, root.ID, dumpKeepIDs, string(meetings.SourceDump))
}

func (o *Orchestrator) recount(ctx context.Context, repo *postgres.Repository, rootServerID int) error {
	if err := repo.ServiceBodies().UpdateCounts(ctx, rootServerID); err != nil {
		return fmt.Errorf("update service body counts: %w", err)
	}
	areas, regions, zones, err := repo.ServiceBodies().CountsByType(ctx, rootServerID)
	if err != nil {
		return fmt.Errorf("count service bodies by type: %w", err)
	}
	meetingCount, err := repo.Meetings().CountActive(ctx, rootServerID)
	if err != nil {
		return fmt.Errorf("count active meetings: %w", err)
	}
	groupCount, err := repo.ServiceBodies().TopLevelGroupTotal(ctx, rootServerID)
	if err != nil {
		return fmt.Errorf("sum top-level group counts: %w", err)
	}
	if err := repo.RootServers().MarkImportSucceeded(ctx, rootServerID, areas, regions, zones, meetingCount, groupCount); err != nil {
		return fmt.Errorf("mark import succeeded: %w", err)
	}
	return nil
}

func (o *Orchestrator) recordProblem(ctx context.Context, repo *postgres.Repository, rootServerID int, reason string, raw interface{}) {
	rawJSON, _ := json.Marshal(raw)
	problem := importproblems.New(rootServerID, reason, string(rawJSON))
	problem.Timestamp = time.Now()
	if err := repo.ImportProblems().Record(ctx, problem); err != nil {
		o.logger.Error().Err(err).Int("root_server_id", rootServerID).Msg("failed to record import problem")
	}
	if o.metrics != nil {
		o.metrics.ImportProblemsTotal.Inc()
	}
}

func ignoredBodySet(ids []int) map[int]bool {
	out := make(map[int]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// parseSourceID extracts a meeting's upstream integer id, reporting
// whether it parsed.
func parseSourceID(raw string) (int, bool) {
	var id int
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
