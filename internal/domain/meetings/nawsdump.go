package meetings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/normalize"
	"github.com/markusmobius/go-dateparser"
)

// DumpRow is one row of the supplementary tabular (NAWS-style) dump,
// merged after the primary import pass (spec §4.4). Columns follow the
// conventional NAWS export header.
type DumpRow struct {
	BMLTID        string
	CommitteeName string
	WorldID       string
	Day           string // weekday name, e.g. "Sunday"
	Time          string // "HHMM", 24-hour, no separator
	Duration      string
	Room          string
	Closed        string // "1"/"0"
	WheelchairAcc string // "1"/"0"
	Formats       string // comma-separated key strings
	Address       string
	City          string
	State         string
	Zip           string
	Unpublished   string // "1"/"0"
	Deleted       string // "1"/"0"
}

var weekdayByName = map[string]int{
	"sunday": 1, "monday": 2, "tuesday": 3, "wednesday": 4,
	"thursday": 5, "friday": 6, "saturday": 7,
}

// ValidateDumpRow coerces one supplementary dump row into a canonical
// Meeting. Per spec §4.4, only rows that are unpublished-or-deleted and
// whose bmlt_id is not already present in the primary import are
// candidates for this path; that filtering happens in the caller
// (internal/importer), not here.
func ValidateDumpRow(rootServerID int, row DumpRow, resolver DumpResolver) (Meeting, Info, *normalize.Failure) {
	id, f := normalize.Int("bmlt_id", row.BMLTID)
	if f != nil {
		return Meeting{}, Info{}, f
	}
	name, f := normalize.RequiredString("committee_name", row.CommitteeName)
	if f != nil {
		return Meeting{}, Info{}, f
	}

	weekday, f := dayNameToWeekday(row.Day)
	if f != nil {
		return Meeting{}, Info{}, f
	}

	startTime, f := hhmmToClock(row.Time)
	if f != nil {
		return Meeting{}, Info{}, f
	}
	durH, durM, f := normalize.Duration("duration", row.Duration)
	if f != nil {
		return Meeting{}, Info{}, f
	}

	worldID := strings.TrimSpace(row.WorldID)
	serviceBodyID, ok := resolver.ServiceBodyIDByWorldID(rootServerID, worldID)
	if !ok {
		return Meeting{}, Info{}, &normalize.Failure{Reason: "Invalid service_body"}
	}

	venueType := 1 // in-person by default for dump rows
	if strings.TrimSpace(row.Address) == "" {
		venueType = 2 // virtual-only when no street address is given
	}

	m := Meeting{
		SourceID:      id,
		RootServerID:  rootServerID,
		ServiceBodyID: serviceBodyID,
		Name:          name,
		Weekday:       weekday,
		VenueType:     venueType,
		StartTime:     startTime,
		DurationHours: durH,
		DurationMins:  durM,
		Language:      "en",
		Published:     row.Unpublished != "1",
		Deleted:       row.Deleted == "1",
		Source:        SourceDump,
		FormatIDs:     resolveDumpFormats(rootServerID, row, resolver),
	}

	info := Info{
		LocationStreet:       row.Address,
		LocationMunicipality: row.City,
		LocationProvince:     row.State,
		LocationPostalCode1:  row.Zip,
		WorldID:              worldID,
	}

	return m, info, nil
}

// DumpResolver resolves the references a dump row needs that aren't
// parseable from the row itself.
type DumpResolver interface {
	ServiceBodyIDByWorldID(rootServerID int, worldID string) (int, bool)
	FormatIDsByKeyString(rootServerID int, keyStrings []string) []int
}

func resolveDumpFormats(rootServerID int, row DumpRow, resolver DumpResolver) []int {
	var keys []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(row.Formats, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		keys = append(keys, part)
	}
	if row.Closed == "1" {
		keys = appendDistinct(keys, "C")
	} else {
		keys = appendDistinct(keys, "O")
	}
	if row.WheelchairAcc == "1" {
		keys = appendDistinct(keys, "WCHR")
	}
	return resolver.FormatIDsByKeyString(rootServerID, keys)
}

func appendDistinct(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}

func dayNameToWeekday(raw string) (int, *normalize.Failure) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if v, ok := weekdayByName[name]; ok {
		return v, nil
	}
	// Fall back to a general-purpose date parser for less conventional
	// day-name spellings/locales present in some exports.
	parsed, err := dateparser.Parse(nil, raw)
	if err == nil && parsed.Time.Weekday() >= 0 {
		// time.Weekday: Sunday=0..Saturday=6; BMLT convention: Sunday=1..Saturday=7
		return int(parsed.Time.Weekday()) + 1, nil
	}
	return 0, &normalize.Failure{Reason: "Malformed day"}
}

func hhmmToClock(raw string) (string, *normalize.Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &normalize.Failure{Reason: "Missing required key time"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 2359 {
		return "", &normalize.Failure{Reason: "Malformed time"}
	}
	raw = fmt.Sprintf("%04d", n)
	h, err := strconv.Atoi(raw[:2])
	if err != nil {
		return "", &normalize.Failure{Reason: "Malformed time"}
	}
	m, err := strconv.Atoi(raw[2:])
	if err != nil {
		return "", &normalize.Failure{Reason: "Malformed time"}
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}
