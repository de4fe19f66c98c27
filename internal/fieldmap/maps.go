package fieldmap

// The seven declarative maps named by spec §4.5. Row keys are the
// internal accessor paths the query engine populates when it builds a
// result row (see internal/query's row builders); external names below
// are the canonical, upstream-protocol-compatible column names these
// maps expose.

// ServerInfoMap describes the GetServerInfo descriptor (spec §6.1).
func ServerInfoMap() Map {
	return Map{
		Name: "server_info",
		Fields: []Field{
			{External: "version", Accessor: Path("version")},
			{External: "langs", Accessor: Path("langs")},
			{External: "centerLatitude", Accessor: Path("center_latitude")},
			{External: "centerLongitude", Accessor: Path("center_longitude")},
			{External: "available_keys", Accessor: Path("available_keys")},
		},
	}
}

// ServiceBodiesMap describes one GetServiceBodies row (spec §3, §4.6,
// §8 scenario 5: top-level bodies report parent_id=0).
func ServiceBodiesMap() Map {
	return Map{
		Name: "service_bodies",
		Fields: []Field{
			{External: "id", Accessor: Path("id")},
			{External: "parent_id", Accessor: Computed(parentIDBoundary)},
			{External: "name", Accessor: Path("name")},
			{External: "type", Accessor: Path("type")},
			{External: "description", Accessor: Path("description")},
			{External: "url", Accessor: Path("url")},
			{External: "helpline", Accessor: Path("helpline")},
			{External: "world_id", Accessor: Path("world_id")},
			{External: "num_meetings", Accessor: Path("num_meetings")},
			{External: "num_groups", Accessor: Path("num_groups")},
			{External: "root_server_id", Accessor: Path("root_server_id")},
		},
	}
}

func parentIDBoundary(row Row) Value {
	v := row["parent_id"]
	if v.IsNone() {
		return Int(0)
	}
	return v
}

// FormatMap describes one GetFormats row.
func FormatMap() Map {
	return Map{
		Name: "format",
		Fields: []Field{
			{External: "id", Accessor: Path("id")},
			{External: "world_id", Accessor: Path("world_id")},
			{External: "key_string", Accessor: Path("key_string")},
			{External: "name_string", Accessor: Path("name")},
			{External: "description_string", Accessor: Path("description")},
			{External: "lang", Accessor: Path("lang")},
			{External: "root_server_id", Accessor: Path("root_server_id")},
		},
	}
}

// geoQualifier gates distance columns to geospatial queries only (spec
// §4.5: "qualifiers let the same map serve geospatial-only columns
// conditionally").
func geoQualifier(row Row) bool {
	return !row["distance_in_km"].IsNone()
}

// MeetingMap describes one GetSearchResults row. contact_* fields are
// always empty: they are reserved outputs not sourced from any input
// (spec §9 open question), so their accessor is a constant computed
// function rather than a path.
func MeetingMap() Map {
	empty := Computed(func(Row) Value { return String("") })
	return Map{
		Name: "meeting",
		Fields: []Field{
			{External: "id_bigint", Accessor: Path("id")},
			{External: "worldid_mixed", Accessor: Path("world_id")},
			{External: "service_body_bigint", Accessor: Path("service_body_id")},
			{External: "weekday_tinyint", Accessor: Path("weekday")},
			{External: "venue_type", Accessor: Path("venue_type")},
			{External: "start_time", Accessor: Path("start_time")},
			{External: "duration_time", Accessor: Path("duration")},
			{External: "formats", Accessor: Path("format_key_strings")},
			{External: "lang_enum", Accessor: Path("language")},
			{External: "longitude", Accessor: Path("longitude")},
			{External: "latitude", Accessor: Path("latitude")},
			{External: "distance_in_km", Accessor: Path("distance_in_km"), Qualifier: geoQualifier},
			{External: "distance_in_miles", Accessor: Path("distance_in_miles"), Qualifier: geoQualifier},
			{External: "meeting_name", Accessor: Path("name")},
			{External: "location_text", Accessor: Path("meetinginfo.location_text")},
			{External: "location_info", Accessor: Path("meetinginfo.location_info")},
			{External: "location_street", Accessor: Path("meetinginfo.location_street")},
			{External: "location_city_subsection", Accessor: Path("meetinginfo.location_city_subsection")},
			{External: "location_neighborhood", Accessor: Path("meetinginfo.location_neighborhood")},
			{External: "location_municipality", Accessor: Path("meetinginfo.location_municipality")},
			{External: "location_sub_province", Accessor: Path("meetinginfo.location_sub_province")},
			{External: "location_province", Accessor: Path("meetinginfo.location_province")},
			{External: "location_postal_code_1", Accessor: Path("meetinginfo.location_postal_code_1")},
			{External: "location_nation", Accessor: Path("meetinginfo.location_nation")},
			{External: "train_lines", Accessor: Path("meetinginfo.train_lines")},
			{External: "bus_lines", Accessor: Path("meetinginfo.bus_lines")},
			{External: "comments", Accessor: Path("meetinginfo.comments")},
			{External: "virtual_meeting_link", Accessor: Path("meetinginfo.virtual_meeting_link")},
			{External: "phone_meeting_number", Accessor: Path("meetinginfo.phone_meeting_number")},
			{External: "virtual_meeting_additional_info", Accessor: Path("meetinginfo.virtual_meeting_additional_info")},
			{External: "email_contact", Accessor: Path("meetinginfo.email")},
			{External: "contact_name_1", Accessor: empty},
			{External: "contact_phone_1", Accessor: empty},
			{External: "contact_email_1", Accessor: empty},
			{External: "contact_name_2", Accessor: empty},
			{External: "contact_phone_2", Accessor: empty},
			{External: "contact_email_2", Accessor: empty},
			{External: "root_server_id", Accessor: Path("root_server_id")},
		},
	}
}

// MeetingKMLMap describes the fields the KML renderer needs (spec
// §4.7): name/address/description/coordinates pre-annotated by the row
// builder (comma-joining only adjacent present components is the row
// builder's job, not the field map's).
func MeetingKMLMap() Map {
	return Map{
		Name: "meeting_kml",
		Fields: []Field{
			{External: "name", Accessor: Path("name")},
			{External: "address", Accessor: Path("kml_address")},
			{External: "description", Accessor: Path("kml_description")},
			{External: "longitude", Accessor: Path("longitude")},
			{External: "latitude", Accessor: Path("latitude")},
		},
	}
}

// MeetingPOIMap describes the `lon,lat,name,desc` POI CSV columns,
// ordered by weekday at the query stage (spec §4.7).
func MeetingPOIMap() Map {
	return Map{
		Name: "meeting_poi",
		Fields: []Field{
			{External: "lon", Accessor: Path("longitude")},
			{External: "lat", Accessor: Path("latitude")},
			{External: "name", Accessor: Path("name")},
			{External: "desc", Accessor: Path("kml_description")},
		},
	}
}

// NAWSDumpMap describes the GetNAWSDump tabular columns (spec §6.1).
func NAWSDumpMap() Map {
	return Map{
		Name: "naws_dump",
		Fields: []Field{
			{External: "committee", Accessor: Path("committee")},
			{External: "committee_name", Accessor: Path("name")},
			{External: "meeting_day", Accessor: Path("weekday_name")},
			{External: "start_time", Accessor: Path("start_time")},
			{External: "duration", Accessor: Path("duration")},
			{External: "room", Accessor: Path("meetinginfo.location_info")},
			{External: "closed", Accessor: Path("closed_flag")},
			{External: "wheelchr_access", Accessor: Path("wheelchair_flag")},
			{External: "street_address", Accessor: Path("meetinginfo.location_street")},
			{External: "city", Accessor: Path("meetinginfo.location_municipality")},
			{External: "state", Accessor: Path("meetinginfo.location_province")},
			{External: "zip", Accessor: Path("meetinginfo.location_postal_code_1")},
			{External: "world_id", Accessor: Path("world_id")},
		},
	}
}

// All returns the registry of builder functions for every declared map,
// for wiring into a Registry.
func All() map[string]func() Map {
	return map[string]func() Map{
		"server_info":    ServerInfoMap,
		"service_bodies": ServiceBodiesMap,
		"format":         FormatMap,
		"meeting":        MeetingMap,
		"meeting_kml":    MeetingKMLMap,
		"meeting_poi":    MeetingPOIMap,
		"naws_dump":      NAWSDumpMap,
	}
}
