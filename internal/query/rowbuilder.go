package query

import (
	"strings"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
)

// scannedMeeting is the flat row shape read directly off the joined SQL
// query, before field-map projection. Its toRow keys match the Path
// accessors declared by the meeting/meeting_kml/meeting_poi/naws_dump
// maps in internal/fieldmap/maps.go exactly.
type scannedMeeting struct {
	id, sourceID, rootServerID int
	rootURL, rootName          string
	serviceBodyID              int
	serviceBodyName            string
	serviceBodyType            string
	serviceBodyWorldID         string
	name                       string
	weekday                    int
	venueType                  int
	startTime                  string
	durationHours              int
	durationMinutes            int
	language                   string
	latitude, longitude        *float64
	published, deleted         bool
	source                     string

	email, locationText, locationInfo, locationStreet                   string
	locationCitySubsection, locationNeighborhood, locationMunicipality  string
	locationSubProvince, locationProvince, locationPostalCode1          string
	locationNation, trainLines, busLines, worldID, comments             string
	virtualMeetingLink, phoneMeetingNumber, virtualMeetingAdditionalInfo string

	formatIDs  []int
	formatKeys []string
	distanceKM *float64
}

var weekdayNames = [...]string{"", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (sm scannedMeeting) toRow() fieldmap.Row {
	row := fieldmap.Row{
		"id":              fieldmap.Int(int64(sm.id)),
		"world_id":        fieldmap.String(sm.worldID),
		"service_body_id": fieldmap.Int(int64(sm.serviceBodyID)),
		"weekday":         fieldmap.Int(int64(sm.weekday)),
		"venue_type":      fieldmap.Int(int64(sm.venueType)),
		"start_time":      fieldmap.String(sm.startTime),
		"duration":        fieldmap.Duration(sm.durationHours, sm.durationMinutes),
		"language":        fieldmap.String(sm.language),
		"name":            fieldmap.String(sm.name),
		"root_server_id":  fieldmap.Int(int64(sm.rootServerID)),

		"meetinginfo.location_text":                    fieldmap.String(sm.locationText),
		"meetinginfo.location_info":                    fieldmap.String(sm.locationInfo),
		"meetinginfo.location_street":                  fieldmap.String(sm.locationStreet),
		"meetinginfo.location_city_subsection":         fieldmap.String(sm.locationCitySubsection),
		"meetinginfo.location_neighborhood":            fieldmap.String(sm.locationNeighborhood),
		"meetinginfo.location_municipality":            fieldmap.String(sm.locationMunicipality),
		"meetinginfo.location_sub_province":            fieldmap.String(sm.locationSubProvince),
		"meetinginfo.location_province":                fieldmap.String(sm.locationProvince),
		"meetinginfo.location_postal_code_1":           fieldmap.String(sm.locationPostalCode1),
		"meetinginfo.location_nation":                  fieldmap.String(sm.locationNation),
		"meetinginfo.train_lines":                      fieldmap.String(sm.trainLines),
		"meetinginfo.bus_lines":                        fieldmap.String(sm.busLines),
		"meetinginfo.comments":                         fieldmap.String(sm.comments),
		"meetinginfo.virtual_meeting_link":             fieldmap.String(sm.virtualMeetingLink),
		"meetinginfo.phone_meeting_number":             fieldmap.String(sm.phoneMeetingNumber),
		"meetinginfo.virtual_meeting_additional_info":  fieldmap.String(sm.virtualMeetingAdditionalInfo),
		"meetinginfo.email":                            fieldmap.String(sm.email),

		// NAWS-only fields.
		"committee":       fieldmap.String(sm.worldID),
		"weekday_name":    fieldmap.String(weekdayName(sm.weekday)),
		"closed_flag":     fieldmap.String(closedFlag(sm.formatKeys)),
		"wheelchair_flag": fieldmap.String(wheelchairFlag(sm.formatKeys)),
	}

	if sm.latitude != nil {
		row["latitude"] = fieldmap.Decimal(*sm.latitude)
	} else {
		row["latitude"] = fieldmap.None()
	}
	if sm.longitude != nil {
		row["longitude"] = fieldmap.Decimal(*sm.longitude)
	} else {
		row["longitude"] = fieldmap.None()
	}

	if len(sm.formatKeys) > 0 {
		vals := make([]fieldmap.Value, len(sm.formatKeys))
		for i, k := range sm.formatKeys {
			vals[i] = fieldmap.String(k)
		}
		row["format_key_strings"] = fieldmap.List(vals)
	} else {
		row["format_key_strings"] = fieldmap.List(nil)
	}

	if sm.distanceKM != nil {
		row["distance_in_km"] = fieldmap.Decimal(*sm.distanceKM)
		row["distance_in_miles"] = fieldmap.Decimal(*sm.distanceKM * milesPerKM)
	} else {
		row["distance_in_km"] = fieldmap.None()
		row["distance_in_miles"] = fieldmap.None()
	}

	// KML/POI composed fields: concatenate location components with
	// comma separators only where adjacent components are both present
	// (spec §4.7).
	row["kml_address"] = fieldmap.String(joinNonEmpty(", ", sm.locationStreet, sm.locationMunicipality, sm.locationProvince))
	row["kml_description"] = fieldmap.String(joinNonEmpty(" - ", sm.name, sm.serviceBodyName))

	return row
}

func weekdayName(weekday int) string {
	if weekday < 1 || weekday > 7 {
		return ""
	}
	return weekdayNames[weekday]
}

// closedFlag/wheelchairFlag surface the synthesized format keys a dump
// row carries (spec §4.4: "open/closed/wheelchair/format flags") back
// out as NAWS-style single-character columns.
func closedFlag(formatKeys []string) string {
	for _, k := range formatKeys {
		if k == "C" {
			return "1"
		}
	}
	return "0"
}

func wheelchairFlag(formatKeys []string) string {
	for _, k := range formatKeys {
		if k == "WCHR" {
			return "1"
		}
	}
	return "0"
}

func joinNonEmpty(sep string, parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, sep)
}
