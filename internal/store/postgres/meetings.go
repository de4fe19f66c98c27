package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
)

type MeetingRepo struct{ r *Repository }

// existingMeetingRow is the currently stored shape of a meeting, joined
// with its meeting_infos row, used to diff an incoming import row
// against what's already on disk (spec §4.3 set_if_changed).
type existingMeetingRow struct {
	id            int
	serviceBodyID int
	name          string
	weekday       int
	venueType     int
	startTime     string
	durationHours int
	durationMins  int
	language      string
	latitude      *float64
	longitude     *float64
	published     bool
	deleted       bool
	source        string
	info          meetings.Info
}

// Upsert writes a meeting and its info/format links, materializing the
// PostGIS point and full-text search_vector from the canonical fields
// (spec §4.3, §4.6), and returns the meeting's canonical id. Unchanged
// fields are left untouched so a repeat import of the same upstream
// snapshot produces no writes at all (spec §8).
func (repo *MeetingRepo) Upsert(ctx context.Context, m meetings.Meeting, info meetings.Info) (int, error) {
	existing, found, err := repo.find(ctx, m.RootServerID, m.SourceID)
	if err != nil {
		return 0, err
	}

	var id int
	if !found {
		id, err = repo.insert(ctx, m, info)
		if err != nil {
			return 0, err
		}
	} else {
		id = existing.id
		if err := repo.update(ctx, existing, m, info); err != nil {
			return 0, err
		}
		if err := repo.updateInfoIfChanged(ctx, id, existing.info, info); err != nil {
			return 0, err
		}
	}

	if err := repo.replaceFormats(ctx, id, m.FormatIDs); err != nil {
		return 0, err
	}
	return id, nil
}

func (repo *MeetingRepo) find(ctx context.Context, rootServerID, sourceID int) (existingMeetingRow, bool, error) {
	var e existingMeetingRow
	err := repo.r.conn().QueryRow(ctx, `
		SELECT m.id, m.service_body_id, m.name, m.weekday, m.venue_type, m.start_time,
		       m.duration_hours, m.duration_minutes, m.language, m.latitude, m.longitude,
		       m.published, m.deleted, m.source,
		       coalesce(mi.email, ''), coalesce(mi.location_text, ''), coalesce(mi.location_info, ''),
		       coalesce(mi.location_street, ''), coalesce(mi.location_city_subsection, ''),
		       coalesce(mi.location_neighborhood, ''), coalesce(mi.location_municipality, ''),
		       coalesce(mi.location_sub_province, ''), coalesce(mi.location_province, ''),
		       coalesce(mi.location_postal_code_1, ''), coalesce(mi.location_nation, ''),
		       coalesce(mi.train_lines, ''), coalesce(mi.bus_lines, ''), coalesce(mi.world_id, ''),
		       coalesce(mi.comments, ''), coalesce(mi.virtual_meeting_link, ''),
		       coalesce(mi.phone_meeting_number, ''), coalesce(mi.virtual_meeting_additional_info, '')
		FROM meetings m
		LEFT JOIN meeting_infos mi ON mi.meeting_id = m.id
		WHERE m.root_server_id = $1 AND m.source_id = $2`,
		rootServerID, sourceID,
	).Scan(
		&e.id, &e.serviceBodyID, &e.name, &e.weekday, &e.venueType, &e.startTime,
		&e.durationHours, &e.durationMins, &e.language, &e.latitude, &e.longitude,
		&e.published, &e.deleted, &e.source,
		&e.info.Email, &e.info.LocationText, &e.info.LocationInfo,
		&e.info.LocationStreet, &e.info.LocationCitySubsection,
		&e.info.LocationNeighborhood, &e.info.LocationMunicipality,
		&e.info.LocationSubProvince, &e.info.LocationProvince,
		&e.info.LocationPostalCode1, &e.info.LocationNation,
		&e.info.TrainLines, &e.info.BusLines, &e.info.WorldID,
		&e.info.Comments, &e.info.VirtualMeetingLink,
		&e.info.PhoneMeetingNumber, &e.info.VirtualMeetingAdditionalInfo,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return existingMeetingRow{}, false, nil
		}
		return existingMeetingRow{}, false, err
	}
	return e, true, nil
}

func (repo *MeetingRepo) insert(ctx context.Context, m meetings.Meeting, info meetings.Info) (int, error) {
	var id int
	err := repo.r.conn().QueryRow(ctx, `
		INSERT INTO meetings (
			source_id, root_server_id, service_body_id, name, weekday, venue_type,
			start_time, duration_hours, duration_minutes, language, latitude, longitude,
			point, published, deleted, source, search_vector, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			CASE WHEN $11::double precision IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($12, $11), 4326)::geography END,
			$13, $14, $15,
			setweight(to_tsvector('simple', coalesce($4, '')), 'A') ||
			setweight(to_tsvector('simple', coalesce($16, '')), 'B') ||
			setweight(to_tsvector('simple', coalesce($17, '')), 'B'),
			now()
		)
		RETURNING id`,
		m.SourceID, m.RootServerID, m.ServiceBodyID, m.Name, m.Weekday, m.VenueType,
		m.StartTime, m.DurationHours, m.DurationMins, m.Language, m.Latitude, m.Longitude,
		m.Published, m.Deleted, string(m.Source),
		info.LocationStreet, info.LocationText,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := repo.insertInfo(ctx, id, info); err != nil {
		return 0, err
	}
	return id, nil
}

// update writes only the meetings columns that differ from existing,
// recomputing the derived point/search_vector columns only when their
// source fields actually changed, and skips the statement entirely
// when nothing changed (spec §8: zero writes on a repeat import).
func (repo *MeetingRepo) update(ctx context.Context, existing existingMeetingRow, m meetings.Meeting, info meetings.Info) error {
	p := newPatch()
	setIfChanged(p, "service_body_id", existing.serviceBodyID, m.ServiceBodyID)
	setIfChanged(p, "name", existing.name, m.Name)
	setIfChanged(p, "weekday", existing.weekday, m.Weekday)
	setIfChanged(p, "venue_type", existing.venueType, m.VenueType)
	setIfChanged(p, "start_time", existing.startTime, m.StartTime)
	setIfChanged(p, "duration_hours", existing.durationHours, m.DurationHours)
	setIfChanged(p, "duration_minutes", existing.durationMins, m.DurationMins)
	setIfChanged(p, "language", existing.language, m.Language)
	setIfChanged(p, "published", existing.published, m.Published)
	setIfChanged(p, "deleted", existing.deleted, m.Deleted)
	setIfChanged(p, "source", existing.source, string(m.Source))

	if !floatPtrEqual(existing.latitude, m.Latitude) || !floatPtrEqual(existing.longitude, m.Longitude) {
		p.set("latitude", m.Latitude)
		p.set("longitude", m.Longitude)
		p.setExpr("point",
			"CASE WHEN ?::double precision IS NULL THEN NULL ELSE ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography END",
			m.Latitude, m.Longitude, m.Latitude)
	}

	if existing.name != m.Name || existing.info.LocationStreet != info.LocationStreet || existing.info.LocationText != info.LocationText {
		p.setExpr("search_vector",
			"setweight(to_tsvector('simple', coalesce(?, '')), 'A') || "+
				"setweight(to_tsvector('simple', coalesce(?, '')), 'B') || "+
				"setweight(to_tsvector('simple', coalesce(?, '')), 'B')",
			m.Name, info.LocationStreet, info.LocationText)
	}

	if p.empty() {
		return nil
	}
	p.setNow("updated_at")
	sqlText, args := p.buildUpdate("meetings", "id = ?", existing.id)
	_, err := repo.r.conn().Exec(ctx, sqlText, args...)
	return err
}

func (repo *MeetingRepo) insertInfo(ctx context.Context, meetingID int, info meetings.Info) error {
	_, err := repo.r.conn().Exec(ctx, `
		INSERT INTO meeting_infos (
			meeting_id, email, location_text, location_info, location_street,
			location_city_subsection, location_neighborhood, location_municipality,
			location_sub_province, location_province, location_postal_code_1, location_nation,
			train_lines, bus_lines, world_id, comments, virtual_meeting_link,
			phone_meeting_number, virtual_meeting_additional_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		meetingID, info.Email, info.LocationText, info.LocationInfo, info.LocationStreet,
		info.LocationCitySubsection, info.LocationNeighborhood, info.LocationMunicipality,
		info.LocationSubProvince, info.LocationProvince, info.LocationPostalCode1, info.LocationNation,
		info.TrainLines, info.BusLines, info.WorldID, info.Comments, info.VirtualMeetingLink,
		info.PhoneMeetingNumber, info.VirtualMeetingAdditionalInfo)
	return err
}

// updateInfoIfChanged writes only the meeting_infos columns that
// differ from existing, skipping the statement entirely when nothing
// changed.
func (repo *MeetingRepo) updateInfoIfChanged(ctx context.Context, meetingID int, existing, info meetings.Info) error {
	p := newPatch()
	setIfChanged(p, "email", existing.Email, info.Email)
	setIfChanged(p, "location_text", existing.LocationText, info.LocationText)
	setIfChanged(p, "location_info", existing.LocationInfo, info.LocationInfo)
	setIfChanged(p, "location_street", existing.LocationStreet, info.LocationStreet)
	setIfChanged(p, "location_city_subsection", existing.LocationCitySubsection, info.LocationCitySubsection)
	setIfChanged(p, "location_neighborhood", existing.LocationNeighborhood, info.LocationNeighborhood)
	setIfChanged(p, "location_municipality", existing.LocationMunicipality, info.LocationMunicipality)
	setIfChanged(p, "location_sub_province", existing.LocationSubProvince, info.LocationSubProvince)
	setIfChanged(p, "location_province", existing.LocationProvince, info.LocationProvince)
	setIfChanged(p, "location_postal_code_1", existing.LocationPostalCode1, info.LocationPostalCode1)
	setIfChanged(p, "location_nation", existing.LocationNation, info.LocationNation)
	setIfChanged(p, "train_lines", existing.TrainLines, info.TrainLines)
	setIfChanged(p, "bus_lines", existing.BusLines, info.BusLines)
	setIfChanged(p, "world_id", existing.WorldID, info.WorldID)
	setIfChanged(p, "comments", existing.Comments, info.Comments)
	setIfChanged(p, "virtual_meeting_link", existing.VirtualMeetingLink, info.VirtualMeetingLink)
	setIfChanged(p, "phone_meeting_number", existing.PhoneMeetingNumber, info.PhoneMeetingNumber)
	setIfChanged(p, "virtual_meeting_additional_info", existing.VirtualMeetingAdditionalInfo, info.VirtualMeetingAdditionalInfo)

	if p.empty() {
		return nil
	}
	sqlText, args := p.buildUpdate("meeting_infos", "meeting_id = ?", meetingID)
	_, err := repo.r.conn().Exec(ctx, sqlText, args...)
	return err
}

// replaceFormats swaps a meeting's format links only when they differ
// from what's stored, avoiding unnecessary writes on unchanged imports
// (spec §9: "only overwrite a field if the normalized incoming value
// differs").
func (repo *MeetingRepo) replaceFormats(ctx context.Context, meetingID int, formatIDs []int) error {
	existing, err := repo.formatIDsFor(ctx, meetingID)
	if err != nil {
		return err
	}
	if sameIntSet(existing, formatIDs) {
		return nil
	}
	if _, err := repo.r.conn().Exec(ctx, `DELETE FROM meeting_formats WHERE meeting_id = $1`, meetingID); err != nil {
		return err
	}
	for _, fid := range formatIDs {
		if _, err := repo.r.conn().Exec(ctx, `
			INSERT INTO meeting_formats (meeting_id, format_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, meetingID, fid); err != nil {
			return err
		}
	}
	return nil
}

func (repo *MeetingRepo) formatIDsFor(ctx context.Context, meetingID int) ([]int, error) {
	rows, err := repo.r.conn().Query(ctx, `SELECT format_id FROM meeting_formats WHERE meeting_id = $1`, meetingID)
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

func sameIntSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}

// MarkMissingDeleted flags meetings belonging to rootServerID whose
// source_id is absent from the current import batch as deleted rather
// than removing them outright, preserving history (spec §4.4: deletions
// are soft).
func (repo *MeetingRepo) MarkMissingDeleted(ctx context.Context, rootServerID int, keepSourceIDs []int, source string) error {
	_, err := repo.r.conn().Exec(ctx, `
		UPDATE meetings SET deleted = true, updated_at = now()
		WHERE root_server_id = $1 AND source = $2 AND NOT (source_id = ANY($3)) AND deleted = false`,
		rootServerID, source, keepSourceIDs)
	return err
}

// CountActive returns the number of non-deleted meetings for a root
// server, used for entity-count bookkeeping (spec §3: num_meetings).
func (repo *MeetingRepo) CountActive(ctx context.Context, rootServerID int) (int, error) {
	var n int
	err := repo.r.conn().QueryRow(ctx, `
		SELECT count(*) FROM meetings WHERE root_server_id = $1 AND deleted = false`, rootServerID).Scan(&n)
	return n, err
}

// AllActivePoints returns (meeting id, lat, lon) for every meeting that
// has a location, used to rebuild the in-process geospatial index after
// a successful import (spec §4.9 expansion).
func (repo *MeetingRepo) AllActivePoints(ctx context.Context) ([]MeetingPoint, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT id, latitude, longitude FROM meetings
		WHERE deleted = false AND published = true AND latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MeetingPoint
	for rows.Next() {
		var p MeetingPoint
		if err := rows.Scan(&p.MeetingID, &p.Latitude, &p.Longitude); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PrimarySourceIDs returns the upstream source ids currently held for a
// root server's primary-source meetings, used to decide which
// supplementary dump rows are genuinely new (spec §4.4: the dump merge
// only considers bmlt_ids absent from the primary list).
func (repo *MeetingRepo) PrimarySourceIDs(ctx context.Context, rootServerID int) ([]int, error) {
	rows, err := repo.r.conn().Query(ctx, `
		SELECT source_id FROM meetings WHERE root_server_id = $1 AND source = 'primary'`, rootServerID)
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

type MeetingPoint struct {
	MeetingID int
	Latitude  float64
	Longitude float64
}
