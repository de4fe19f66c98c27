package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
)

type RootServerRepo struct{ r *Repository }

// List returns every configured root server (spec §4.4 discovery source
// of truth when ROOT_LIST_URL is unset, and general listing use).
func (repo *RootServerRepo) List(ctx context.Context) ([]rootservers.RootServer, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT id, url, name, server_info_version, server_info_langs,
		       server_info_center_lat, server_info_center_lon,
		       last_successful_import, num_areas, num_regions, num_zones,
		       num_meetings, num_groups, created_at, updated_at
		FROM root_servers
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rootservers.RootServer
	for rows.Next() {
		rs, err := scanRootServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (repo *RootServerRepo) GetByURL(ctx context.Context, url string) (rootservers.RootServer, bool, error) {
	row := repo.r.conn().QueryRow(ctx, `
		SELECT id, url, name, server_info_version, server_info_langs,
		       server_info_center_lat, server_info_center_lon,
		       last_successful_import, num_areas, num_regions, num_zones,
		       num_meetings, num_groups, created_at, updated_at
		FROM root_servers WHERE url = $1`, url)
	rs, err := scanRootServer(row)
	if err == pgx.ErrNoRows {
		return rootservers.RootServer{}, false, nil
	}
	if err != nil {
		return rootservers.RootServer{}, false, err
	}
	return rs, true, nil
}

// Upsert inserts or updates a root server by URL, returning its id
// (spec §4.4: root list reconciliation keys on URL).
func (repo *RootServerRepo) Upsert(ctx context.Context, rs rootservers.RootServer) (int, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		INSERT INTO root_servers (url, name, server_info_version, server_info_langs,
		                           server_info_center_lat, server_info_center_lon, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			server_info_version = EXCLUDED.server_info_version,
			server_info_langs = EXCLUDED.server_info_langs,
			server_info_center_lat = EXCLUDED.server_info_center_lat,
			server_info_center_lon = EXCLUDED.server_info_center_lon,
			updated_at = now()
		RETURNING id`,
		rs.URL, rs.Name, rs.ServerInfo.Version, strings.Join(rs.ServerInfo.Languages, ","),
		rs.ServerInfo.CenterLatitude, rs.ServerInfo.CenterLongitude).Scan(&id)
	return id, err
}

// DeleteMissing removes root servers whose URL is not in keepURLs (spec
// §4.4: root list reconciliation removes servers dropped from the list).
func (repo *RootServerRepo) DeleteMissing(ctx context.Context, keepURLs []string) error {
	_, err := repo.r.conn().Exec(ctx, `DELETE FROM root_servers WHERE NOT (url = ANY($1))`, keepURLs)
	return err
}

// MarkImportSucceeded stamps last_successful_import and the entity
// counts for a root server (spec §4.4 final step of a per-root import).
func (repo *RootServerRepo) MarkImportSucceeded(ctx context.Context, id int, areas, regions, zones, meetings, groups int) error {
	_, err := repo.r.conn().Exec(ctx, `
		UPDATE root_servers
		SET last_successful_import = now(),
		    num_areas = $2, num_regions = $3, num_zones = $4,
		    num_meetings = $5, num_groups = $6, updated_at = now()
		WHERE id = $1`, id, areas, regions, zones, meetings, groups)
	return err
}

// MaxLastSuccessfulImport implements translation.Loader's staleness
// check (spec §4.8: cache refreshes when any root has imported since).
func (repo *RootServerRepo) MaxLastSuccessfulImport(ctx context.Context) (time.Time, error) {
	var t *time.Time
	err := repo.r.conn().QueryRow(ctx, `SELECT max(last_successful_import) FROM root_servers`).Scan(&t)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, nil
	}
	return *t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRootServer(row rowScanner) (rootservers.RootServer, error) {
	var rs rootservers.RootServer
	var langs string
	err := row.Scan(&rs.ID, &rs.URL, &rs.Name, &rs.ServerInfo.Version, &langs,
		&rs.ServerInfo.CenterLatitude, &rs.ServerInfo.CenterLongitude,
		&rs.LastSuccessfulImport, &rs.NumAreas, &rs.NumRegions, &rs.NumZones,
		&rs.NumMeetings, &rs.NumGroups, &rs.CreatedAt, &rs.UpdatedAt)
	if err != nil {
		return rootservers.RootServer{}, err
	}
	if langs != "" {
		rs.ServerInfo.Languages = strings.Split(langs, ",")
	}
	return rs, nil
}
