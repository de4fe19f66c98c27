package postgres

import (
	"context"
	"fmt"

	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
)

// List returns service bodies for the GetServiceBodies switcher,
// optionally narrowed to rootServerIDs and/or serviceIDs (spec §6.1:
// "root_server_id(s), services[]").
func (repo *ServiceBodyRepo) List(ctx context.Context, rootServerIDs, serviceIDs []int) ([]servicebodies.ServiceBody, error) {
	sqlText := `
		SELECT id, source_id, root_server_id, parent_id, name, type, description, url,
		       helpline, world_id, num_meetings, num_groups, created_at, updated_at
		FROM service_bodies WHERE true`
	var args []interface{}
	if len(rootServerIDs) > 0 {
		args = append(args, rootServerIDs)
		sqlText += fmt.Sprintf(" AND root_server_id = ANY($%d)", len(args))
	}
	if len(serviceIDs) > 0 {
		args = append(args, serviceIDs)
		sqlText += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	sqlText += " ORDER BY id"

	rows, err := repo.r.conn().Query(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []servicebodies.ServiceBody
	for rows.Next() {
		var b servicebodies.ServiceBody
		var typ string
		if err := rows.Scan(&b.ID, &b.SourceID, &b.RootServerID, &b.ParentID, &b.Name, &typ,
			&b.Description, &b.URL, &b.Helpline, &b.WorldID, &b.NumMeetings, &b.NumGroups,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Type = servicebodies.Type(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

type ServiceBodyRepo struct{ r *Repository }

// existingBodyRow is the currently stored shape of a service body, used
// to diff an incoming import row against what's already on disk (spec
// §4.3 set_if_changed) and to detect orphans.
type existingBodyRow struct {
	id          int
	parentID    *int
	name        string
	typ         string
	description string
	url         string
	helpline    string
	worldID     string
}

// ReplaceAll performs the two-pass service-body import for a root
// server (spec §4.4 step 2): every body is upserted by source_id with
// parent_id left untouched in the first pass, orphans (source_ids
// absent from this batch) are deleted, then parent_id is wired in a
// second pass so a forward-referenced or missing/cyclic parent never
// blocks the import (it degrades to a top-level body, spec §8 edge
// case). Only columns that actually differ from the stored row are
// written, so a repeat import of the same snapshot produces no writes
// (spec §8).
func (repo *ServiceBodyRepo) ReplaceAll(ctx context.Context, rootServerID int, bodies []servicebodies.ServiceBody) (map[int]int, error) {
	existing, err := repo.loadExisting(ctx, rootServerID)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, len(bodies))
	idBySourceID := make(map[int]int, len(bodies))
	for _, b := range bodies {
		keep = append(keep, b.SourceID)
		if cur, ok := existing[b.SourceID]; ok {
			idBySourceID[b.SourceID] = cur.id
			if err := repo.updateIfChanged(ctx, cur, b); err != nil {
				return nil, err
			}
		} else {
			id, err := repo.insert(ctx, rootServerID, b)
			if err != nil {
				return nil, err
			}
			idBySourceID[b.SourceID] = id
		}
	}

	if err := repo.deleteOrphans(ctx, rootServerID, keep); err != nil {
		return nil, err
	}

	for _, b := range bodies {
		childID := idBySourceID[b.SourceID]
		var newParentID *int
		if b.ParentID != nil {
			// A missing parent (not in this import batch) or a
			// self-reference both degrade to top-level rather than
			// blocking the import (spec §8 edge case).
			if parentID, ok := idBySourceID[*b.ParentID]; ok && parentID != childID {
				newParentID = &parentID
			}
		}
		if err := repo.setParentIfChanged(ctx, childID, existing[b.SourceID].parentID, newParentID); err != nil {
			return nil, err
		}
	}

	return idBySourceID, nil
}

func (repo *ServiceBodyRepo) loadExisting(ctx context.Context, rootServerID int) (map[int]existingBodyRow, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT source_id, id, parent_id, name, type, description, url, helpline, world_id
		FROM service_bodies WHERE root_server_id = $1`, rootServerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]existingBodyRow)
	for rows.Next() {
		var sourceID int
		var e existingBodyRow
		if err := rows.Scan(&sourceID, &e.id, &e.parentID, &e.name, &e.typ, &e.description, &e.url, &e.helpline, &e.worldID); err != nil {
			return nil, err
		}
		out[sourceID] = e
	}
	return out, rows.Err()
}

func (repo *ServiceBodyRepo) insert(ctx context.Context, rootServerID int, b servicebodies.ServiceBody) (int, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		INSERT INTO service_bodies (source_id, root_server_id, name, type, description, url, helpline, world_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id`,
		b.SourceID, rootServerID, b.Name, string(b.Type), b.Description, b.URL, b.Helpline, b.WorldID).Scan(&id)
	return id, err
}

func (repo *ServiceBodyRepo) updateIfChanged(ctx context.Context, existing existingBodyRow, b servicebodies.ServiceBody) error {
	p := newPatch()
	setIfChanged(p, "name", existing.name, b.Name)
	setIfChanged(p, "type", existing.typ, string(b.Type))
	setIfChanged(p, "description", existing.description, b.Description)
	setIfChanged(p, "url", existing.url, b.URL)
	setIfChanged(p, "helpline", existing.helpline, b.Helpline)
	setIfChanged(p, "world_id", existing.worldID, b.WorldID)
	if p.empty() {
		return nil
	}
	p.setNow("updated_at")
	sqlText, args := p.buildUpdate("service_bodies", "id = ?", existing.id)
	_, err := repo.r.conn().Exec(ctx, sqlText, args...)
	return err
}

func (repo *ServiceBodyRepo) setParentIfChanged(ctx context.Context, childID int, currentParentID, newParentID *int) error {
	if intPtrEqual(currentParentID, newParentID) {
		return nil
	}
	_, err := repo.r.conn().Exec(ctx, `UPDATE service_bodies SET parent_id = $1, updated_at = now() WHERE id = $2`, newParentID, childID)
	return err
}

// deleteOrphans removes bodies under rootServerID whose source_id is
// absent from the current import batch (spec §4.4: orphans are
// deleted, not merely left unreferenced).
func (repo *ServiceBodyRepo) deleteOrphans(ctx context.Context, rootServerID int, keepSourceIDs []int) error {
	_, err := repo.r.conn().Exec(ctx, `
		DELETE FROM service_bodies WHERE root_server_id = $1 AND NOT (source_id = ANY($2))`,
		rootServerID, keepSourceIDs)
	return err
}

// IDBySourceID resolves a root/source id pair to the canonical id,
// implementing meetings.Resolver.ServiceBodyID.
func (repo *ServiceBodyRepo) IDBySourceID(ctx context.Context, rootServerID, sourceID int) (int, bool, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		SELECT id FROM service_bodies WHERE root_server_id = $1 AND source_id = $2`,
		rootServerID, sourceID).Scan(&id)
	if err != nil {
		return 0, false, nilOnNoRows(err)
	}
	return id, true, nil
}

// IDByWorldID resolves a world-committee id to a canonical service-body
// id, implementing meetings.DumpResolver.ServiceBodyIDByWorldID.
func (repo *ServiceBodyRepo) IDByWorldID(ctx context.Context, rootServerID int, worldID string) (int, bool, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		SELECT id FROM service_bodies WHERE root_server_id = $1 AND world_id = $2`,
		rootServerID, worldID).Scan(&id)
	if err != nil {
		return 0, false, nilOnNoRows(err)
	}
	return id, true, nil
}

// UpdateCounts recomputes num_meetings/num_groups per body after a
// meeting import pass (spec §4.4 recount step). num_groups follows the
// source convention: meetings with a non-empty world_id count as
// distinct groups by world_id, meetings without one count as distinct
// groups by name (spec §4.4: "distinct groups by world_id + distinct
// names for those without").
func (repo *ServiceBodyRepo) UpdateCounts(ctx context.Context, rootServerID int) error {
	if _, err := repo.r.conn().Exec(ctx, `UPDATE service_bodies SET num_meetings = 0, num_groups = 0 WHERE root_server_id = $1`, rootServerID); err != nil {
		return err
	}
	// The ancestor closure `anc` is built with UNION (not UNION ALL) so
	// a malformed cycle in parent_id still terminates: once a pair
	// repeats, the set stops growing (spec §9: "cycle guard"). Each
	// body's rolled-up total is then the sum of its own leaf count plus
	// every descendant's leaf count, computed once rather than by
	// repeated incremental addition.
	_, err := repo.r.conn().Exec(ctx, `
		WITH RECURSIVE leaf AS (
			SELECT m.service_body_id AS id,
			       count(*) AS meetings,
			       count(DISTINCT nullif(mi.world_id, '')) FILTER (WHERE mi.world_id <> '')
			         + count(DISTINCT m.name) FILTER (WHERE mi.world_id = '' OR mi.world_id IS NULL) AS groups
			FROM meetings m
			LEFT JOIN meeting_infos mi ON mi.meeting_id = m.id
			WHERE m.root_server_id = $1 AND m.deleted = false
			GROUP BY m.service_body_id
		),
		anc(ancestor_id, descendant_id) AS (
			SELECT id, id FROM service_bodies WHERE root_server_id = $1
			UNION
			SELECT anc.ancestor_id, sb.id
			FROM anc JOIN service_bodies sb ON sb.parent_id = anc.descendant_id
			WHERE sb.root_server_id = $1
		),
		totals AS (
			SELECT anc.ancestor_id AS id, sum(leaf.meetings) AS meetings, sum(leaf.groups) AS groups
			FROM anc
			JOIN leaf ON leaf.id = anc.descendant_id
			GROUP BY anc.ancestor_id
		)
		UPDATE service_bodies sb
		SET num_meetings = totals.meetings, num_groups = totals.groups
		FROM totals
		WHERE sb.id = totals.id AND sb.root_server_id = $1`, rootServerID)
	return err
}

// Descendants returns every service body under id (not including id
// itself) via a bounded iterative breadth-first walk, tolerating cycles
// by tracking visited ids (spec §4.6 "recursive expands to all
// descendants", §9 "iterative bounded traversal, cycle guard").
func (repo *ServiceBodyRepo) Descendants(ctx context.Context, id int) ([]int, error) {
	visited := map[int]bool{id: true}
	frontier := []int{id}
	var out []int

	const maxDepth = 50
	for depth := 0; len(frontier) > 0 && depth < maxDepth; depth++ {
		rows, err := repo.r.conn().Query(ctx, `SELECT id FROM service_bodies WHERE parent_id = ANY($1)`, frontier)
		if err != nil {
			return nil, err
		}
		var next []int
		for rows.Next() {
			var childID int
			if err := rows.Scan(&childID); err != nil {
				rows.Close()
				return nil, err
			}
			if visited[childID] {
				continue
			}
			visited[childID] = true
			out = append(out, childID)
			next = append(next, childID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		frontier = next
	}
	return out, nil
}

// CountsByType returns the area/region/zone tallies for a root server's
// entity-count bookkeeping (spec §3: num_areas/regions/zones).
func (repo *ServiceBodyRepo) CountsByType(ctx context.Context, rootServerID int) (areas, regions, zones int, err error) {
	row := repo.r.conn().QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE type IN ('AS', 'MA')),
			count(*) FILTER (WHERE type = 'RS'),
			count(*) FILTER (WHERE type = 'ZF')
		FROM service_bodies WHERE root_server_id = $1`, rootServerID)
	err = row.Scan(&areas, &regions, &zones)
	return areas, regions, zones, err
}

// TopLevelGroupTotal sums num_groups across a root server's top-level
// (parentless) service bodies, used as the root's overall group count
// (spec §4.4 recount step; rolled-up totals already avoid double
// counting descendants since UpdateCounts computes each body's total
// independently from the full ancestor closure).
func (repo *ServiceBodyRepo) TopLevelGroupTotal(ctx context.Context, rootServerID int) (int, error) {
	var n int
	err := repo.r.conn().QueryRow(ctx, `
		SELECT coalesce(sum(num_groups), 0) FROM service_bodies
		WHERE root_server_id = $1 AND parent_id IS NULL`, rootServerID).Scan(&n)
	return n, err
}
