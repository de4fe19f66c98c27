package meetings

import (
	"strconv"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/normalize"
)

// Resolver looks up the local ids a raw meeting record refers to by
// source identifiers, so Validate can stay a pure function over
// already-imported bodies and formats (spec §4.4 runs bodies and
// formats passes before the meetings pass).
type Resolver interface {
	// ServiceBodyID resolves (root, source_id) to a local service body
	// id.
	ServiceBodyID(rootServerID, sourceID int) (int, bool)
	// FormatIDsBySourceID resolves a list of upstream format source ids
	// to local format ids, dropping any that don't resolve.
	FormatIDsBySourceID(rootServerID int, sourceIDs []int) []int
	// FormatIDsByKeyString resolves a list of format key strings
	// (distinct) to local format ids, dropping any that don't resolve.
	FormatIDsByKeyString(rootServerID int, keyStrings []string) []int
}

// Validate coerces one raw upstream meeting record into its canonical
// form (spec §4.2). Service body resolution failure fails with "Invalid
// service_body"; everything else follows the shared field coercions.
func Validate(rootServerID int, raw Raw, resolver Resolver) (Meeting, *normalize.Failure) {
	id, f := normalize.Int("id", raw.ID)
	if f != nil {
		return Meeting{}, f
	}
	name, f := normalize.RequiredString("meeting_name", raw.Name)
	if f != nil {
		return Meeting{}, f
	}
	weekday, f := normalize.Weekday("weekday_tinyint", raw.Weekday)
	if f != nil {
		return Meeting{}, f
	}
	startTime, f := normalize.Time("start_time", raw.StartTime)
	if f != nil {
		return Meeting{}, f
	}
	durH, durM, f := normalize.Duration("duration_time", raw.Duration)
	if f != nil {
		return Meeting{}, f
	}

	sbSourceID, f := normalize.Int("service_body_bigint", raw.ServiceBodyID)
	if f != nil {
		return Meeting{}, f
	}
	serviceBodyID, ok := resolver.ServiceBodyID(rootServerID, sbSourceID)
	if !ok {
		return Meeting{}, &normalize.Failure{Reason: "Invalid service_body"}
	}

	venueType := 0
	if raw.VenueType != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw.VenueType)); err == nil {
			venueType = v
		}
	}

	lang := strings.TrimSpace(raw.Language)
	if lang == "" {
		lang = "en"
	}

	var lat, lon *float64
	if strings.TrimSpace(raw.Latitude) != "" && strings.TrimSpace(raw.Longitude) != "" {
		latVal, latF := normalize.Decimal("latitude", raw.Latitude)
		lonVal, lonF := normalize.Decimal("longitude", raw.Longitude)
		if latF == nil && lonF == nil {
			lat, lon = &latVal, &lonVal
		}
	}

	published := raw.Published != "0" && raw.Published != ""

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
		Language:      lang,
		Latitude:      lat,
		Longitude:     lon,
		Published:     published,
		Deleted:       false,
		Source:        SourcePrimary,
		FormatIDs:     resolveFormats(rootServerID, raw, resolver),
	}

	return m, nil
}

// BuildInfo extracts the MeetingInfo half of a raw record. Split from
// Validate so callers that already have a validated Meeting can still
// get its Info without re-parsing scalar fields.
func BuildInfo(meetingID int, raw Raw) Info {
	return Info{
		MeetingID:                    meetingID,
		Email:                        raw.Email,
		LocationText:                 raw.LocationText,
		LocationInfo:                 raw.LocationInfo,
		LocationStreet:               raw.LocationStreet,
		LocationCitySubsection:       raw.LocationCitySubsection,
		LocationNeighborhood:         raw.LocationNeighborhood,
		LocationMunicipality:         raw.LocationMunicipality,
		LocationSubProvince:          raw.LocationSubProvince,
		LocationProvince:             raw.LocationProvince,
		LocationPostalCode1:          raw.LocationPostalCode1,
		LocationNation:               raw.LocationNation,
		TrainLines:                   raw.TrainLines,
		BusLines:                     raw.BusLines,
		WorldID:                      strings.TrimSpace(raw.WorldID),
		Comments:                     raw.Comments,
		VirtualMeetingLink:           raw.VirtualMeetingLink,
		PhoneMeetingNumber:           raw.PhoneMeetingNumber,
		VirtualMeetingAdditionalInfo: raw.VirtualInfo,
	}
}

func resolveFormats(rootServerID int, raw Raw, resolver Resolver) []int {
	if s := strings.TrimSpace(raw.FormatSharedIDList); s != "" {
		var ids []int
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if v, err := strconv.Atoi(part); err == nil {
				ids = append(ids, v)
			}
		}
		return resolver.FormatIDsBySourceID(rootServerID, ids)
	}
	if s := strings.TrimSpace(raw.Formats); s != "" {
		seen := make(map[string]bool)
		var keys []string
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			keys = append(keys, part)
		}
		return resolver.FormatIDsByKeyString(rootServerID, keys)
	}
	return nil
}
