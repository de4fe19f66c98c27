// Package meetings models the core catalog entry: a single recurring
// meeting, its one-to-one location/contact detail, and its many-to-many
// set of formats.
package meetings

import "time"

// Source distinguishes meetings merged from the primary upstream list
// from ones merged from the supplementary NAWS-style tabular dump
// (spec §4.4, "the supplementary tabular dump... merged after the
// primary list"). This is bookkeeping only: it never appears in any
// rendered field map.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceDump    Source = "dump"
)

// Meeting is one recurring meeting under a service body.
type Meeting struct {
	ID             int
	SourceID       int
	RootServerID   int
	ServiceBodyID  int
	Name           string
	Weekday        int // 1..7, 1 = Sunday
	VenueType      int
	StartTime      string // "HH:MM", wall-clock, no timezone
	DurationHours  int
	DurationMins   int
	Language       string
	Latitude       *float64
	Longitude      *float64
	Published      bool
	Deleted        bool
	Source         Source
	FormatIDs      []int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPoint reports whether the meeting carries a materialized
// geographic point (spec §8: "(m.point is null) iff (m.latitude is null
// or m.longitude is null)").
func (m Meeting) HasPoint() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Info is the 1:1 location/contact detail attached to a Meeting,
// cascade-deleted with it.
type Info struct {
	MeetingID                    int
	Email                        string
	LocationText                 string
	LocationInfo                 string
	LocationStreet               string
	LocationCitySubsection       string
	LocationNeighborhood         string
	LocationMunicipality         string
	LocationSubProvince          string
	LocationProvince             string
	LocationPostalCode1          string
	LocationNation               string
	TrainLines                   string
	BusLines                     string
	WorldID                      string
	Comments                     string
	VirtualMeetingLink           string
	PhoneMeetingNumber           string
	VirtualMeetingAdditionalInfo string
}

// Raw is the shape of one meeting record as received from an upstream
// GetSearchResults response.
type Raw struct {
	ID                     string `json:"id"`
	ServiceBodyID          string `json:"service_body_bigint"`
	Name                   string `json:"meeting_name"`
	Weekday                string `json:"weekday_tinyint"`
	VenueType              string `json:"venue_type"`
	StartTime              string `json:"start_time"`
	Duration               string `json:"duration_time"`
	Language               string `json:"lang_enum"`
	Latitude               string `json:"latitude"`
	Longitude              string `json:"longitude"`
	Published              string `json:"published"`
	FormatSharedIDList     string `json:"format_shared_id_list"`
	Formats                string `json:"formats"`
	Email                  string `json:"email_contact"`
	LocationText           string `json:"location_text"`
	LocationInfo           string `json:"location_info"`
	LocationStreet         string `json:"location_street"`
	LocationCitySubsection string `json:"location_city_subsection"`
	LocationNeighborhood   string `json:"location_neighborhood"`
	LocationMunicipality   string `json:"location_municipality"`
	LocationSubProvince    string `json:"location_sub_province"`
	LocationProvince       string `json:"location_province"`
	LocationPostalCode1    string `json:"location_postal_code_1"`
	LocationNation         string `json:"location_nation"`
	TrainLines             string `json:"train_lines"`
	BusLines               string `json:"bus_lines"`
	WorldID                string `json:"worldid_mixed"`
	Comments               string `json:"comments"`
	VirtualMeetingLink     string `json:"virtual_meeting_link"`
	PhoneMeetingNumber     string `json:"phone_meeting_number"`
	VirtualInfo            string `json:"virtual_meeting_additional_info"`
}
