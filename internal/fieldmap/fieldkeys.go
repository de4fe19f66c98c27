package fieldmap

// FieldKeyInfo is one row of the GetFieldKeys catalog (spec §6.1): a
// queryable key paired with a human-readable description. Every
// searchable key here must also appear in MeetingMap's external names,
// since GetFieldValues and meeting_key filters are both keyed off the
// same names.
type FieldKeyInfo struct {
	Key         string
	Description string
}

// FieldKeyCatalog returns the catalog GetFieldKeys serves, in the
// meeting map's declared order (spec §4.5 "external-name order is the
// canonical column order").
func FieldKeyCatalog() []FieldKeyInfo {
	descriptions := map[string]string{
		"id_bigint":                       "The unique id (number) of this meeting",
		"worldid_mixed":                   "The world id of this meeting",
		"service_body_bigint":             "The unique id (number) of the service body this meeting belongs to",
		"weekday_tinyint":                 "The day of the week on which this meeting takes place (1=Sunday ... 7=Saturday)",
		"venue_type":                      "The venue type for in-person (1), virtual (2), or hybrid (3) meetings",
		"start_time":                      "The start time of this meeting",
		"duration_time":                   "The duration of this meeting",
		"formats":                         "A comma-delimited list of format key strings for this meeting",
		"lang_enum":                       "The language this meeting is conducted in",
		"longitude":                       "The longitude of this meeting's location",
		"latitude":                        "The latitude of this meeting's location",
		"distance_in_km":                  "Distance from the search point in kilometers (only present on a geographic search)",
		"distance_in_miles":               "Distance from the search point in miles (only present on a geographic search)",
		"meeting_name":                    "The name of this meeting",
		"location_text":                   "The name of the location where this meeting is held",
		"location_info":                   "Additional information about the location",
		"location_street":                 "The street address of the location",
		"location_city_subsection":        "The city subsection (e.g. borough) of the location",
		"location_neighborhood":           "The neighborhood of the location",
		"location_municipality":           "The city/municipality of the location",
		"location_sub_province":           "The sub-province (e.g. county) of the location",
		"location_province":               "The province/state of the location",
		"location_postal_code_1":          "The postal code of the location",
		"location_nation":                 "The nation of the location",
		"train_lines":                     "Nearby train lines",
		"bus_lines":                       "Nearby bus lines",
		"comments":                        "Additional comments about this meeting",
		"virtual_meeting_link":            "The URL used to join this meeting virtually",
		"phone_meeting_number":            "The phone number used to join this meeting by phone",
		"virtual_meeting_additional_info": "Additional information for joining this meeting virtually",
		"email_contact":                   "The contact email address for this meeting",
		"contact_name_1":                  "The name of the first contact for this meeting",
		"contact_phone_1":                 "The phone number of the first contact for this meeting",
		"contact_email_1":                 "The email address of the first contact for this meeting",
		"contact_name_2":                  "The name of the second contact for this meeting",
		"contact_phone_2":                 "The phone number of the second contact for this meeting",
		"contact_email_2":                 "The email address of the second contact for this meeting",
		"root_server_id":                  "The id of the root server this meeting was imported from",
	}

	names := MeetingMap().Names()
	out := make([]FieldKeyInfo, 0, len(names))
	for _, name := range names {
		out = append(out, FieldKeyInfo{Key: name, Description: descriptions[name]})
	}
	return out
}

// SearchableKeys is the subset of meeting field keys GetFieldValues and
// the meeting_key query filter accept (spec §6.1: "GetFieldValues with
// a non-searchable meeting_key" is a reject case). Free-text and
// contact placeholder fields are excluded since they have no backing
// column to group by.
func SearchableKeys() map[string]bool {
	return map[string]bool{
		"id_bigint":                true,
		"worldid_mixed":            true,
		"service_body_bigint":      true,
		"weekday_tinyint":          true,
		"venue_type":               true,
		"start_time":               true,
		"lang_enum":                true,
		"meeting_name":             true,
		"location_text":            true,
		"location_street":          true,
		"location_city_subsection": true,
		"location_neighborhood":    true,
		"location_municipality":    true,
		"location_sub_province":    true,
		"location_province":        true,
		"location_postal_code_1":  true,
		"location_nation":          true,
		"root_server_id":           true,
		"formats":                  true,
	}
}
