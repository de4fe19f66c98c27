package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/geoindex"
	"github.com/bmlt-enabled/tomato/internal/translation"
)

// Store is the subset of the postgres repository the engine needs. Kept
// as an interface so the engine can be tested against a fake.
type Store interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Engine compiles a Plan into SQL, executes it, and streams the result
// as field-map rows annotated with geospatial distance where relevant
// (spec §4.6).
type Engine struct {
	store        Store
	geoIdx       *geoindex.Index
	translations *translation.Cache
}

func NewEngine(store Store, geoIdx *geoindex.Index, translations *translation.Cache) *Engine {
	return &Engine{store: store, geoIdx: geoIdx, translations: translations}
}

// Record is one rendered result: the field-map row projected through
// the requested map.
type Record struct {
	Row fieldmap.Row
}

const meetingsSelect = `
SELECT m.id, m.source_id, m.root_server_id, rs.url, rs.name,
       m.service_body_id, sb.name, sb.type, sb.world_id,
       m.name, m.weekday, m.venue_type, m.start_time, m.duration_hours, m.duration_minutes,
       m.language, m.latitude, m.longitude, m.published, m.deleted, m.source,
       mi.email, mi.location_text, mi.location_info, mi.location_street,
       mi.location_city_subsection, mi.location_neighborhood, mi.location_municipality,
       mi.location_sub_province, mi.location_province, mi.location_postal_code_1, mi.location_nation,
       mi.train_lines, mi.bus_lines, mi.world_id, mi.comments, mi.virtual_meeting_link,
       mi.phone_meeting_number, mi.virtual_meeting_additional_info,
       (SELECT array_agg(mf.format_id) FROM meeting_formats mf WHERE mf.meeting_id = m.id) AS format_ids,
       (SELECT array_agg(DISTINCT tf.key_string) FROM meeting_formats mf
          JOIN translated_formats tf ON tf.format_id = mf.format_id
          WHERE mf.meeting_id = m.id AND tf.language = 'en') AS format_keys
FROM meetings m
JOIN service_bodies sb ON sb.id = m.service_body_id
JOIN root_servers rs ON rs.id = m.root_server_id
LEFT JOIN meeting_infos mi ON mi.meeting_id = m.id`

// Search runs plan and returns an iterator over the matching records,
// rendered into field-map rows in the project's default order (or the
// plan's requested sort), ready for a renderer to consume lazily (spec
// §4.6/§4.7, §5: no full-result-set buffering; a canceled request
// releases its cursor instead of running to completion first).
func (e *Engine) Search(ctx context.Context, plan Plan, mapName string) (*RecordIter, error) {
	if !plan.HasRequiredFilter || plan.Impossible {
		// Required-filter rule (spec §4.6) and the geocoder-failure
		// impossible predicate (spec §7 item 5) both resolve to a
		// well-formed empty result rather than a query.
		return SliceIter(nil), nil
	}

	m, ok := fieldmap.All()[mapName]
	if !ok {
		return nil, fmt.Errorf("unknown field map %q", mapName)
	}
	compiled := m()

	lang := translation.LanguageFromContext(ctx)
	var only map[string]bool
	if len(plan.Params.DataFieldKeys) > 0 {
		only = make(map[string]bool, len(plan.Params.DataFieldKeys))
		for _, k := range plan.Params.DataFieldKeys {
			only[k] = true
		}
	}
	project := func(sm scannedMeeting) Record {
		row := sm.toRow()
		row["language_requested"] = fieldmap.String(lang)
		named := compiled.Project(row, only)
		r := fieldmap.Row{}
		for _, nv := range named {
			r[nv.Name] = nv.Value
		}
		return Record{Row: r}
	}

	// Distance-sort and explicit sort_keys both compare across the
	// whole candidate set, which needs every row in memory at once; the
	// plain default-order case doesn't, so it's pushed into SQL and
	// streamed straight off the cursor without ever building a slice.
	if plan.Geo == nil && len(plan.Params.SortKeys) == 0 {
		return e.searchStreamed(ctx, plan, project)
	}
	return e.searchMaterialized(ctx, plan, project)
}

// searchStreamed runs plan with ORDER BY/LIMIT/OFFSET pushed into SQL
// and hands back an iterator that scans one row per Next() call,
// keeping the cursor open only as long as the caller keeps pulling
// (spec §5: cancellation releases the underlying cursor).
func (e *Engine) searchStreamed(ctx context.Context, plan Plan, project func(scannedMeeting) Record) (*RecordIter, error) {
	where, args := e.buildWhere(plan)
	sqlText := meetingsSelect
	if len(where) > 0 {
		sqlText += "\nWHERE " + strings.Join(where, " AND ")
	}
	sqlText += "\nORDER BY m.language, m.weekday, m.start_time, m.id"
	if plan.Params.PageSize > 0 {
		pageNum := plan.Params.PageNum
		if pageNum < 1 {
			pageNum = 1
		}
		offset := (pageNum - 1) * plan.Params.PageSize
		args = append(args, plan.Params.PageSize, offset)
		sqlText += fmt.Sprintf("\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := e.store.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}

	next := func(ctx context.Context) (Record, bool, error) {
		if !rows.Next() {
			return Record{}, false, rows.Err()
		}
		sm, err := scanMeetingRow(rows)
		if err != nil {
			return Record{}, false, fmt.Errorf("scan meeting row: %w", err)
		}
		return project(sm), true, nil
	}
	return NewRecordIter(ctx, next, rows.Close), nil
}

// searchMaterialized handles geo-distance ordering and explicit
// sort_keys, both of which need the full candidate set in memory to
// compare rows against each other; the cursor is still released as
// soon as scanning finishes rather than held open through sort/page.
func (e *Engine) searchMaterialized(ctx context.Context, plan Plan, project func(scannedMeeting) Record) (*RecordIter, error) {
	where, args := e.buildWhere(plan)
	sqlText := meetingsSelect
	if len(where) > 0 {
		sqlText += "\nWHERE " + strings.Join(where, " AND ")
	}

	rows, err := e.store.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	var scanned []scannedMeeting
	for rows.Next() {
		sm, err := scanMeetingRow(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan meeting row: %w", err)
		}
		scanned = append(scanned, sm)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return nil, rowsErr
	}

	if plan.Geo != nil {
		scanned = e.applyGeo(scanned, *plan.Geo)
	}
	sortRows(scanned, plan.Params.SortKeys, plan.Geo != nil && plan.Geo.AnnotateDistance && plan.Params.SortByDistance)
	scanned = paginate(scanned, plan.Params.PageSize, plan.Params.PageNum)

	idx := 0
	next := func(context.Context) (Record, bool, error) {
		if idx >= len(scanned) {
			return Record{}, false, nil
		}
		rec := project(scanned[idx])
		idx++
		return rec, true, nil
	}
	return NewRecordIter(ctx, next, func() {}), nil
}

// scanMeetingRow scans one meetingsSelect row, shared by Search and
// NAWSDump.
func scanMeetingRow(rows pgx.Rows) (scannedMeeting, error) {
	var sm scannedMeeting
	err := rows.Scan(
		&sm.id, &sm.sourceID, &sm.rootServerID, &sm.rootURL, &sm.rootName,
		&sm.serviceBodyID, &sm.serviceBodyName, &sm.serviceBodyType, &sm.serviceBodyWorldID,
		&sm.name, &sm.weekday, &sm.venueType, &sm.startTime, &sm.durationHours, &sm.durationMinutes,
		&sm.language, &sm.latitude, &sm.longitude, &sm.published, &sm.deleted, &sm.source,
		&sm.email, &sm.locationText, &sm.locationInfo, &sm.locationStreet,
		&sm.locationCitySubsection, &sm.locationNeighborhood, &sm.locationMunicipality,
		&sm.locationSubProvince, &sm.locationProvince, &sm.locationPostalCode1, &sm.locationNation,
		&sm.trainLines, &sm.busLines, &sm.worldID, &sm.comments, &sm.virtualMeetingLink,
		&sm.phoneMeetingNumber, &sm.virtualMeetingAdditionalInfo,
		&sm.formatIDs, &sm.formatKeys,
	)
	return sm, err
}

// NAWSDump runs the GetNAWSDump switcher's query (spec §6.1): every
// meeting under serviceBodyIDs with a non-empty world_id, including
// unpublished/deleted ones, projected through the naws_dump field map
// and streamed off the cursor one row at a time. This intentionally
// bypasses buildWhere's "m.deleted = false" clause since the dump is an
// export for the parent organization's own records, not a public search
// result.
func (e *Engine) NAWSDump(ctx context.Context, serviceBodyIDs []int) (*RecordIter, error) {
	if len(serviceBodyIDs) == 0 {
		return SliceIter(nil), nil
	}
	sqlText := meetingsSelect + `
WHERE m.service_body_id = ANY($1) AND coalesce(mi.world_id, '') <> ''`

	rows, err := e.store.Query(ctx, sqlText, serviceBodyIDs)
	if err != nil {
		return nil, fmt.Errorf("query naws dump: %w", err)
	}

	m := fieldmap.All()["naws_dump"]()
	next := func(ctx context.Context) (Record, bool, error) {
		if !rows.Next() {
			return Record{}, false, rows.Err()
		}
		sm, err := scanMeetingRow(rows)
		if err != nil {
			return Record{}, false, fmt.Errorf("scan naws dump row: %w", err)
		}
		row := sm.toRow()
		named := m.Project(row, nil)
		r := fieldmap.Row{}
		for _, nv := range named {
			r[nv.Name] = nv.Value
		}
		return Record{Row: r}, true, nil
	}
	return NewRecordIter(ctx, next, rows.Close), nil
}

// UsedFormats returns the distinct format ids referenced by plan's
// matching meeting set, for the GetSearchResults `get_used_formats`/
// `get_formats_only` supplements (spec §6.1). It reuses plan's WHERE
// clause but ignores sort/paging/geo radius trimming, since the format
// set only needs membership, not ordering.
func (e *Engine) UsedFormats(ctx context.Context, plan Plan) ([]int, error) {
	if !plan.HasRequiredFilter || plan.Impossible {
		return nil, nil
	}
	where, args := e.buildWhere(plan)
	sqlText := `SELECT DISTINCT mf.format_id FROM meeting_formats mf JOIN meetings m ON m.id = mf.meeting_id`
	if len(where) > 0 {
		sqlText += "\nWHERE " + strings.Join(where, " AND ")
	}
	rows, err := e.store.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query used formats: %w", err)
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

// FieldValue is one distinct value of a GetFieldValues field, paired
// with the ids of the meetings that hold it.
type FieldValue struct {
	Value string
	IDs   []int
}

// FieldValues implements the GetFieldValues switcher (spec §6.1): the
// distinct values of a single field plus the ids that hold each value.
// "formats" is many-to-many, so its values are each meeting's sorted
// format-id set (rendered as a comma-joined string) and the ids are the
// meetings sharing that exact set; every other supported key is a
// scalar column grouped directly in SQL.
func (e *Engine) FieldValues(ctx context.Context, rootServerIDs []int, key string) ([]FieldValue, error) {
	if key == "formats" {
		return e.formatSetFieldValues(ctx, rootServerIDs)
	}

	col, ok := searchableColumn(key)
	if !ok {
		return nil, fmt.Errorf("unsupported field_key %q", key)
	}

	sqlText := fmt.Sprintf(`
		SELECT %s::text, array_agg(m.id ORDER BY m.id)
		FROM meetings m
		LEFT JOIN meeting_infos mi ON mi.meeting_id = m.id
		WHERE m.deleted = false`, col)
	var args []interface{}
	if len(rootServerIDs) > 0 {
		args = append(args, rootServerIDs)
		sqlText += fmt.Sprintf(" AND m.root_server_id = ANY($%d)", len(args))
	}
	sqlText += fmt.Sprintf(" GROUP BY %s ORDER BY %s", col, col)

	rows, err := e.store.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query field values: %w", err)
	}
	defer rows.Close()

	var out []FieldValue
	for rows.Next() {
		var fv FieldValue
		if err := rows.Scan(&fv.Value, &fv.IDs); err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, rows.Err()
}

func (e *Engine) formatSetFieldValues(ctx context.Context, rootServerIDs []int) ([]FieldValue, error) {
	sqlText := `
		SELECT m.id, (SELECT array_agg(mf.format_id ORDER BY mf.format_id) FROM meeting_formats mf WHERE mf.meeting_id = m.id)
		FROM meetings m WHERE m.deleted = false`
	var args []interface{}
	if len(rootServerIDs) > 0 {
		args = append(args, rootServerIDs)
		sqlText += fmt.Sprintf(" AND m.root_server_id = ANY($%d)", len(args))
	}

	rows, err := e.store.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query format sets: %w", err)
	}
	defer rows.Close()

	byKey := make(map[string]*FieldValue)
	var order []string
	for rows.Next() {
		var id int
		var formatIDs []int64
		if err := rows.Scan(&id, &formatIDs); err != nil {
			return nil, err
		}
		parts := make([]string, len(formatIDs))
		for i, fid := range formatIDs {
			parts[i] = fmt.Sprintf("%d", fid)
		}
		key := strings.Join(parts, ",")
		fv, ok := byKey[key]
		if !ok {
			fv = &FieldValue{Value: key}
			byKey[key] = fv
			order = append(order, key)
		}
		fv.IDs = append(fv.IDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FieldValue, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

// buildWhere translates the non-geospatial, non-sort parts of plan into
// a SQL WHERE clause and its positional arguments.
func (e *Engine) buildWhere(plan Plan) ([]string, []interface{}) {
	p := plan.Params
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	clauses = append(clauses, "m.deleted = false")

	if !p.MeetingIDs.Empty() {
		if len(p.MeetingIDs.Include) > 0 {
			clauses = append(clauses, fmt.Sprintf("m.id = ANY(%s)", arg(p.MeetingIDs.Include)))
		}
		if len(p.MeetingIDs.Exclude) > 0 {
			clauses = append(clauses, fmt.Sprintf("NOT (m.id = ANY(%s))", arg(p.MeetingIDs.Exclude)))
		}
	}
	if len(plan.ServicesExpanded.Include) > 0 {
		clauses = append(clauses, fmt.Sprintf("m.service_body_id = ANY(%s)", arg(plan.ServicesExpanded.Include)))
	}
	if len(plan.ServicesExpanded.Exclude) > 0 {
		clauses = append(clauses, fmt.Sprintf("NOT (m.service_body_id = ANY(%s))", arg(plan.ServicesExpanded.Exclude)))
	}
	if !p.Weekdays.Empty() {
		if len(p.Weekdays.Include) > 0 {
			clauses = append(clauses, fmt.Sprintf("m.weekday = ANY(%s)", arg(p.Weekdays.Include)))
		}
		if len(p.Weekdays.Exclude) > 0 {
			clauses = append(clauses, fmt.Sprintf("NOT (m.weekday = ANY(%s))", arg(p.Weekdays.Exclude)))
		}
	}
	if !p.VenueTypes.Empty() {
		if len(p.VenueTypes.Include) > 0 {
			clauses = append(clauses, fmt.Sprintf("m.venue_type = ANY(%s)", arg(p.VenueTypes.Include)))
		}
		if len(p.VenueTypes.Exclude) > 0 {
			clauses = append(clauses, fmt.Sprintf("NOT (m.venue_type = ANY(%s))", arg(p.VenueTypes.Exclude)))
		}
	}
	if !p.RootServers.Empty() {
		if len(p.RootServers.Include) > 0 {
			clauses = append(clauses, fmt.Sprintf("m.root_server_id = ANY(%s)", arg(p.RootServers.Include)))
		}
		if len(p.RootServers.Exclude) > 0 {
			clauses = append(clauses, fmt.Sprintf("NOT (m.root_server_id = ANY(%s))", arg(p.RootServers.Exclude)))
		}
	}
	if len(p.Formats.Include) > 0 {
		if p.FormatsOperator == "AND" {
			clauses = append(clauses, fmt.Sprintf(
				`(SELECT count(*) FROM meeting_formats mf WHERE mf.meeting_id = m.id AND mf.format_id = ANY(%s)) = %d`,
				arg(p.Formats.Include), len(p.Formats.Include)))
		} else {
			clauses = append(clauses, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM meeting_formats mf WHERE mf.meeting_id = m.id AND mf.format_id = ANY(%s))`,
				arg(p.Formats.Include)))
		}
	}
	if len(p.Formats.Exclude) > 0 {
		clauses = append(clauses, fmt.Sprintf(
			`NOT EXISTS (SELECT 1 FROM meeting_formats mf WHERE mf.meeting_id = m.id AND mf.format_id = ANY(%s))`,
			arg(p.Formats.Exclude)))
	}

	if p.MeetingKey != "" && p.MeetingKeyValue != "" {
		if col, ok := searchableColumn(p.MeetingKey); ok {
			clauses = append(clauses, fmt.Sprintf("%s = %s", col, arg(p.MeetingKeyValue)))
		}
	}

	if p.StartsAfterH != nil || p.StartsAfterM != nil {
		clauses = append(clauses, fmt.Sprintf("m.start_time >= %s", arg(clockString(p.StartsAfterH, p.StartsAfterM))))
	}
	if p.StartsBeforeH != nil || p.StartsBeforeM != nil {
		clauses = append(clauses, fmt.Sprintf("m.start_time <= %s", arg(clockString(p.StartsBeforeH, p.StartsBeforeM))))
	}
	if p.EndsBeforeH != nil || p.EndsBeforeM != nil {
		clauses = append(clauses, fmt.Sprintf(
			"(m.start_time::time + make_interval(hours => m.duration_hours, mins => m.duration_minutes)) <= %s::time",
			arg(clockString(p.EndsBeforeH, p.EndsBeforeM))))
	}
	if p.MinDurationH != nil || p.MinDurationM != nil {
		clauses = append(clauses, fmt.Sprintf(
			"(m.duration_hours * 60 + m.duration_minutes) >= %s",
			arg(durationMinutes(p.MinDurationH, p.MinDurationM))))
	}
	if p.MaxDurationH != nil || p.MaxDurationM != nil {
		clauses = append(clauses, fmt.Sprintf(
			"(m.duration_hours * 60 + m.duration_minutes) <= %s",
			arg(durationMinutes(p.MaxDurationH, p.MaxDurationM))))
	}

	if p.SearchString != "" && !p.SearchStringIsAnAddress {
		clauses = append(clauses, fullTextClause(p, arg))
	}

	return clauses, args
}

// searchableColumn maps a meeting-map external field name to its
// backing SQL column, for the meeting_key filter and GetFieldValues
// (spec §6.1). Keys absent here either have no single backing column
// (m2m formats) or are placeholder/free-text fields with nothing to
// group by; fieldmap.SearchableKeys is the authoritative reject-rule
// source, this is just the SQL side of that same list.
func searchableColumn(key string) (string, bool) {
	cols := map[string]string{
		"id_bigint":                "m.id",
		"worldid_mixed":            "mi.world_id",
		"service_body_bigint":      "m.service_body_id",
		"weekday_tinyint":          "m.weekday",
		"venue_type":               "m.venue_type",
		"start_time":               "m.start_time",
		"lang_enum":                "m.language",
		"meeting_name":             "m.name",
		"location_text":            "mi.location_text",
		"location_street":          "mi.location_street",
		"location_city_subsection": "mi.location_city_subsection",
		"location_neighborhood":    "mi.location_neighborhood",
		"location_municipality":    "mi.location_municipality",
		"location_sub_province":    "mi.location_sub_province",
		"location_province":        "mi.location_province",
		"location_postal_code_1":   "mi.location_postal_code_1",
		"location_nation":          "mi.location_nation",
		"root_server_id":           "m.root_server_id",
	}
	c, ok := cols[key]
	return c, ok
}

func clockString(h, m *int) string {
	hh, mm := 0, 0
	if h != nil {
		hh = *h
	}
	if m != nil {
		mm = *m
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

func durationMinutes(h, m *int) int {
	hh, mm := 0, 0
	if h != nil {
		hh = *h
	}
	if m != nil {
		mm = *m
	}
	return hh*60 + mm
}

// fullTextClause implements spec §4.6's text row: OR-combined tokens by
// default, AND semantics under SearchStringAll, substring match under
// SearchStringExact. Outside SearchStringExact, standalone integer
// tokens become additional meeting-id disjuncts.
func fullTextClause(p Params, arg func(interface{}) string) string {
	if p.SearchStringExact {
		needle := "%" + p.SearchString + "%"
		return fmt.Sprintf(`(m.name || ' ' || coalesce(mi.comments,'')) ILIKE %s`, arg(needle))
	}

	var disjuncts []string
	if words := tokenize(p.SearchString); len(words) > 0 {
		tsOp := " | "
		if p.SearchStringAll {
			tsOp = " & "
		}
		query := strings.Join(words, tsOp)
		disjuncts = append(disjuncts, fmt.Sprintf("m.search_vector @@ to_tsquery('simple', %s)", arg(query)))
	}
	for _, w := range strings.Fields(p.SearchString) {
		if n, err := parseStandaloneInt(w); err == nil {
			disjuncts = append(disjuncts, fmt.Sprintf("m.id = %s", arg(n)))
		}
	}
	if len(disjuncts) == 0 {
		return "true"
	}
	return "(" + strings.Join(disjuncts, " OR ") + ")"
}

func tokenize(s string) []string {
	stop := map[string]bool{"the": true}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) < 3 || stop[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func parseStandaloneInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// applyGeo restricts scanned to the geospatial candidate set via the H3
// prefilter, computes exact great-circle distance, and for nearest-N
// mode trims to the closest N (spec §4.6: "annotate distance, order by
// distance, take first N ids, then re-restrict").
func (e *Engine) applyGeo(scanned []scannedMeeting, g Geo) []scannedMeeting {
	var candidateIDs map[int]bool
	if e.geoIdx != nil {
		var ids []int
		switch g.Mode {
		case GeoRadius:
			ids = e.geoIdx.CandidatesWithin(g.Lat, g.Lon, g.RadiusKM)
		case GeoNearestN:
			ids = e.geoIdx.NearestCells(g.Lat, g.Lon, g.N)
		}
		candidateIDs = make(map[int]bool, len(ids))
		for _, id := range ids {
			candidateIDs[id] = true
		}
	}

	var out []scannedMeeting
	for _, sm := range scanned {
		if sm.latitude == nil || sm.longitude == nil {
			continue
		}
		if candidateIDs != nil && !candidateIDs[sm.id] {
			continue
		}
		distKM := haversineKM(g.Lat, g.Lon, *sm.latitude, *sm.longitude)
		if g.Mode == GeoRadius && distKM > g.RadiusKM {
			continue
		}
		sm.distanceKM = &distKM
		out = append(out, sm)
	}

	if g.Mode == GeoNearestN {
		sort.Slice(out, func(i, j int) bool { return *out[i].distanceKM < *out[j].distanceKM })
		if g.N > 0 && len(out) > g.N {
			out = out[:g.N]
		}
	}
	return out
}

const earthRadiusKM = 6371.0088

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// sortRows orders scanned by distance (if requested and available) or
// by the explicit sort_keys, falling back to the default
// (language, weekday, start_time, id) per spec §4.6.
func sortRows(scanned []scannedMeeting, sortKeys []string, byDistance bool) {
	if byDistance {
		sort.SliceStable(scanned, func(i, j int) bool {
			di, dj := scanned[i].distanceKM, scanned[j].distanceKM
			if di == nil || dj == nil {
				return false
			}
			return *di < *dj
		})
		return
	}
	if len(sortKeys) > 0 {
		sort.SliceStable(scanned, func(i, j int) bool {
			for _, key := range sortKeys {
				c := compareByKey(scanned[i], scanned[j], key)
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
		return
	}
	sort.SliceStable(scanned, func(i, j int) bool {
		a, b := scanned[i], scanned[j]
		if a.language != b.language {
			return a.language < b.language
		}
		if a.weekday != b.weekday {
			return a.weekday < b.weekday
		}
		if a.startTime != b.startTime {
			return a.startTime < b.startTime
		}
		return a.id < b.id
	})
}

// compareByKey resolves a sort key as a meeting-map field key (e.g.
// weekday_tinyint) against the scalar fields only; m2m columns
// (formats) and unknown keys are silently ignored per spec §4.6.
func compareByKey(a, b scannedMeeting, key string) int {
	if key == "formats" {
		return 0
	}
	var acc *fieldmap.Accessor
	for _, f := range fieldmap.MeetingMap().Fields {
		if f.External == key {
			acc = &f.Accessor
			break
		}
	}
	if acc == nil {
		return 0
	}
	av := acc.Resolve(a.toRow())
	bv := acc.Resolve(b.toRow())
	if av.IsNone() && bv.IsNone() {
		return 0
	}
	switch {
	case fieldmap.Less(av, bv):
		return -1
	case fieldmap.Less(bv, av):
		return 1
	default:
		return 0
	}
}

func paginate(scanned []scannedMeeting, pageSize, pageNum int) []scannedMeeting {
	if pageSize <= 0 {
		return scanned
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start >= len(scanned) {
		return nil
	}
	end := start + pageSize
	if end > len(scanned) {
		end = len(scanned)
	}
	return scanned[start:end]
}
