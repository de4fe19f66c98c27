package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bmlt-enabled/tomato/internal/domain/formats"
)

type FormatRepo struct{ r *Repository }

// existingFormatRow is the currently stored shape of a format, used to
// diff an incoming import row against what's already on disk (spec
// §4.3 set_if_changed) and to detect orphans.
type existingFormatRow struct {
	id      int
	worldID string
	typ     string
}

// ReplaceAll upserts every format (and its translations) for a root
// server by source_id, deleting only rows whose source_id is absent
// from this batch, so an unchanged upstream snapshot produces no
// writes and no id churn on repeat imports (spec §4.4 step 3, §8).
func (repo *FormatRepo) ReplaceAll(ctx context.Context, rootServerID int, pairs []formats.Format, translations []formats.TranslatedFormat) (map[int]int, error) {
	existing, err := repo.loadExisting(ctx, rootServerID)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, len(pairs))
	idBySourceID := make(map[int]int, len(pairs))
	for _, f := range pairs {
		keep = append(keep, f.SourceID)
		if cur, ok := existing[f.SourceID]; ok {
			idBySourceID[f.SourceID] = cur.id
			if err := repo.updateIfChanged(ctx, cur, f); err != nil {
				return nil, err
			}
		} else {
			id, err := repo.insert(ctx, rootServerID, f)
			if err != nil {
				return nil, err
			}
			idBySourceID[f.SourceID] = id
		}
	}

	if err := repo.deleteOrphans(ctx, rootServerID, keep); err != nil {
		return nil, err
	}

	keepLangs := make(map[int]map[string]bool, len(idBySourceID))
	for _, tf := range translations {
		id, ok := idBySourceID[tf.FormatID]
		if !ok {
			continue
		}
		if err := repo.upsertTranslationIfChanged(ctx, id, tf); err != nil {
			return nil, err
		}
		if keepLangs[id] == nil {
			keepLangs[id] = make(map[string]bool)
		}
		keepLangs[id][tf.Language] = true
	}
	for _, id := range idBySourceID {
		if err := repo.deleteOrphanTranslations(ctx, id, keepLangs[id]); err != nil {
			return nil, err
		}
	}

	return idBySourceID, nil
}

func (repo *FormatRepo) loadExisting(ctx context.Context, rootServerID int) (map[int]existingFormatRow, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT source_id, id, world_id, type FROM formats WHERE root_server_id = $1`, rootServerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]existingFormatRow)
	for rows.Next() {
		var sourceID int
		var e existingFormatRow
		if err := rows.Scan(&sourceID, &e.id, &e.worldID, &e.typ); err != nil {
			return nil, err
		}
		out[sourceID] = e
	}
	return out, rows.Err()
}

func (repo *FormatRepo) insert(ctx context.Context, rootServerID int, f formats.Format) (int, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		INSERT INTO formats (source_id, root_server_id, world_id, type, updated_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id`, f.SourceID, rootServerID, f.WorldID, f.Type).Scan(&id)
	return id, err
}

func (repo *FormatRepo) updateIfChanged(ctx context.Context, existing existingFormatRow, f formats.Format) error {
	p := newPatch()
	setIfChanged(p, "world_id", existing.worldID, f.WorldID)
	setIfChanged(p, "type", existing.typ, f.Type)
	if p.empty() {
		return nil
	}
	p.setNow("updated_at")
	sqlText, args := p.buildUpdate("formats", "id = ?", existing.id)
	_, err := repo.r.conn().Exec(ctx, sqlText, args...)
	return err
}

// deleteOrphans removes formats under rootServerID whose source_id is
// absent from the current import batch; translated_formats rows
// cascade with them.
func (repo *FormatRepo) deleteOrphans(ctx context.Context, rootServerID int, keepSourceIDs []int) error {
	_, err := repo.r.conn().Exec(ctx, `
		DELETE FROM formats WHERE root_server_id = $1 AND NOT (source_id = ANY($2))`,
		rootServerID, keepSourceIDs)
	return err
}

func (repo *FormatRepo) upsertTranslationIfChanged(ctx context.Context, formatID int, tf formats.TranslatedFormat) error {
	var keyString, name, description string
	err := repo.r.conn().QueryRow(ctx, `
		SELECT key_string, name, description FROM translated_formats WHERE format_id = $1 AND language = $2`,
		formatID, tf.Language).Scan(&keyString, &name, &description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, err := repo.r.conn().Exec(ctx, `
				INSERT INTO translated_formats (format_id, language, key_string, name, description)
				VALUES ($1, $2, $3, $4, $5)`, formatID, tf.Language, tf.KeyString, tf.Name, tf.Description)
			return err
		}
		return err
	}

	p := newPatch()
	setIfChanged(p, "key_string", keyString, tf.KeyString)
	setIfChanged(p, "name", name, tf.Name)
	setIfChanged(p, "description", description, tf.Description)
	if p.empty() {
		return nil
	}
	sqlText, args := p.buildUpdate("translated_formats", "format_id = ? AND language = ?", formatID, tf.Language)
	_, err = repo.r.conn().Exec(ctx, sqlText, args...)
	return err
}

// deleteOrphanTranslations removes a format's translation rows for
// languages no longer present in the current import batch.
func (repo *FormatRepo) deleteOrphanTranslations(ctx context.Context, formatID int, keepLangs map[string]bool) error {
	langs := make([]string, 0, len(keepLangs))
	for lang := range keepLangs {
		langs = append(langs, lang)
	}
	_, err := repo.r.conn().Exec(ctx, `
		DELETE FROM translated_formats WHERE format_id = $1 AND NOT (language = ANY($2))`,
		formatID, langs)
	return err
}

// IDsBySourceIDs resolves a list of root/source id pairs to canonical
// format ids, implementing meetings.Resolver.FormatIDsBySourceID.
func (repo *FormatRepo) IDsBySourceIDs(ctx context.Context, rootServerID int, sourceIDs []int) ([]int, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	rows, err := repo.r.conn().Query(ctx, `
		SELECT id FROM formats WHERE root_server_id = $1 AND source_id = ANY($2)`,
		rootServerID, sourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IDsByKeyStrings resolves key_strings to canonical format ids by
// matching them against the format's translation rows in any language
// (the key_string is language-agnostic in BMLT but stored per
// translation row), implementing
// meetings.Resolver.FormatIDsByKeyString and
// meetings.DumpResolver.FormatIDsByKeyString.
func (repo *FormatRepo) IDsByKeyStrings(ctx context.Context, rootServerID int, keyStrings []string) ([]int, error) {
	if len(keyStrings) == 0 {
		return nil, nil
	}
	rows, err := repo.r.conn().Query(ctx, `
		SELECT DISTINCT f.id
		FROM formats f
		JOIN translated_formats tf ON tf.format_id = f.id
		WHERE f.root_server_id = $1 AND tf.key_string = ANY($2)`,
		rootServerID, keyStrings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// FormatRow is one translated format as returned to the GetFormats
// switcher: the format joined with one language's translation row.
type FormatRow struct {
	ID           int
	RootServerID int
	WorldID      string
	Type         string
	Language     string
	KeyString    string
	Name         string
	Description  string
}

// List returns translated formats for the GetFormats switcher,
// optionally narrowed by rootServerIDs, keyStrings, and lang (spec
// §6.1: "root_server_id(s), key_strings[], lang_enum").
func (repo *FormatRepo) List(ctx context.Context, rootServerIDs []int, keyStrings []string, lang string) ([]FormatRow, error) {
	if lang == "" {
		lang = "en"
	}
	sqlText := `
		SELECT f.id, f.root_server_id, f.world_id, f.type, tf.language, tf.key_string, tf.name, tf.description
		FROM formats f
		JOIN translated_formats tf ON tf.format_id = f.id
		WHERE tf.language = $1`
	args := []interface{}{lang}
	if len(rootServerIDs) > 0 {
		args = append(args, rootServerIDs)
		sqlText += fmt.Sprintf(" AND f.root_server_id = ANY($%d)", len(args))
	}
	if len(keyStrings) > 0 {
		args = append(args, keyStrings)
		sqlText += fmt.Sprintf(" AND tf.key_string = ANY($%d)", len(args))
	}
	sqlText += " ORDER BY f.id"

	rows, err := repo.r.conn().Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FormatRow
	for rows.Next() {
		var r FormatRow
		if err := rows.Scan(&r.ID, &r.RootServerID, &r.WorldID, &r.Type, &r.Language, &r.KeyString, &r.Name, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadAllTranslations implements translation.Loader for the process-wide
// translation cache (spec §4.8).
func (repo *FormatRepo) LoadAllTranslations(ctx context.Context) ([]formats.TranslatedFormat, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT id, format_id, language, key_string, name, description FROM translated_formats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []formats.TranslatedFormat
	for rows.Next() {
		var tf formats.TranslatedFormat
		if err := rows.Scan(&tf.ID, &tf.FormatID, &tf.Language, &tf.KeyString, &tf.Name, &tf.Description); err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, rows.Err()
}
