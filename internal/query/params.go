// Package query turns an incoming parameter multimap into a Plan and
// compiles that Plan into a single SQL query against the Postgres store
// (spec §4.6). Parameter parsing here is grounded on the teacher's
// scalar/list-aware middleware parameter handling
// (internal/api/middleware/negotiate.go), generalized from a fixed set
// of known query keys to the Tomato filter vocabulary.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// IDFilter is a signed-id include/exclude set: a positive value
// includes, a negative value excludes, per spec §4.6's multimap
// convention.
type IDFilter struct {
	Include []int
	Exclude []int
}

func (f IDFilter) Empty() bool { return len(f.Include) == 0 && len(f.Exclude) == 0 }

// parseIDFilter reads both the scalar (x=5) and indexed-list (x[]=5&x[]=-4)
// forms of a signed-id parameter.
func parseIDFilter(values url.Values, scalarKey, listKey string) IDFilter {
	var f IDFilter
	add := func(raw string) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		if n > 0 {
			f.Include = append(f.Include, n)
		} else if n < 0 {
			f.Exclude = append(f.Exclude, -n)
		}
	}
	if v := values.Get(scalarKey); v != "" {
		add(v)
	}
	for _, v := range values[listKey] {
		add(v)
	}
	return f
}

// Params is the parsed, but not yet planned, request. It's kept
// separate from Plan so handlers can inspect raw presence (e.g.
// get_formats_only) without re-deriving it from the compiled plan.
type Params struct {
	Raw url.Values

	MeetingIDs   IDFilter
	Weekdays     IDFilter
	VenueTypes   IDFilter
	RootServers  IDFilter
	Services     IDFilter
	ServicesRecursive bool
	Formats      IDFilter
	FormatsOperator string // "AND" or "OR"

	MeetingKey      string
	MeetingKeyValue string

	StartsAfterH, StartsAfterM   *int
	StartsBeforeH, StartsBeforeM *int
	EndsBeforeH, EndsBeforeM     *int
	MinDurationH, MinDurationM   *int
	MaxDurationH, MaxDurationM   *int

	LatVal, LongVal       *float64
	GeoWidthMiles         *float64
	GeoWidthKM            *float64
	SortByDistance        bool

	SearchString            string
	SearchStringIsAnAddress bool
	SearchStringRadius      *float64
	SearchStringAll         bool
	SearchStringExact       bool

	DataFieldKeys []string
	SortKeys      []string

	PageSize int
	PageNum  int

	GetUsedFormats bool
	GetFormatsOnly bool
	LangEnum       string
	SBID           []int // GetNAWSDump's sb_id parameter
}

func ParseParams(values url.Values) Params {
	p := Params{Raw: values}

	p.MeetingIDs = parseIDFilter(values, "meeting_id", "meeting_ids[]")
	p.Weekdays = parseIDFilter(values, "weekday", "weekdays[]")
	p.VenueTypes = parseIDFilter(values, "venue_type", "venue_types[]")
	p.RootServers = parseIDFilter(values, "root_server_id", "root_server_ids[]")
	p.Services = parseIDFilter(values, "services", "services[]")
	p.Formats = parseIDFilter(values, "formats", "formats[]")

	p.ServicesRecursive = values.Get("recursive") == "1"
	p.FormatsOperator = strings.ToUpper(values.Get("formats_comparison_operator"))
	if p.FormatsOperator != "AND" {
		p.FormatsOperator = "OR"
	}

	p.MeetingKey = values.Get("meeting_key")
	p.MeetingKeyValue = values.Get("meeting_key_value")

	p.StartsAfterH = parseIntPtr(values, "StartsAfterH")
	p.StartsAfterM = parseIntPtr(values, "StartsAfterM")
	p.StartsBeforeH = parseIntPtr(values, "StartsBeforeH")
	p.StartsBeforeM = parseIntPtr(values, "StartsBeforeM")
	p.EndsBeforeH = parseIntPtr(values, "EndsBeforeH")
	p.EndsBeforeM = parseIntPtr(values, "EndsBeforeM")
	p.MinDurationH = parseIntPtr(values, "MinDurationH")
	p.MinDurationM = parseIntPtr(values, "MinDurationM")
	p.MaxDurationH = parseIntPtr(values, "MaxDurationH")
	p.MaxDurationM = parseIntPtr(values, "MaxDurationM")

	p.LatVal = parseFloatPtr(values, "lat_val")
	p.LongVal = parseFloatPtr(values, "long_val")
	p.GeoWidthMiles = parseFloatPtr(values, "geo_width")
	p.GeoWidthKM = parseFloatPtr(values, "geo_width_km")
	p.SortByDistance = values.Get("sort_results_by_distance") == "1"

	p.SearchString = values.Get("SearchString")
	p.SearchStringIsAnAddress = values.Get("StringSearchIsAnAddress") == "1"
	p.SearchStringRadius = parseFloatPtr(values, "SearchStringRadius")
	p.SearchStringAll = values.Get("SearchStringAll") == "1"
	p.SearchStringExact = values.Get("SearchStringExact") == "1"

	if v := values.Get("data_field_key"); v != "" {
		p.DataFieldKeys = splitCSV(v)
	}
	if v := values.Get("sort_keys"); v != "" {
		p.SortKeys = splitCSV(v)
	}

	p.PageSize = parseInt(values.Get("page_size"), 0)
	p.PageNum = parseInt(values.Get("page_num"), 0)

	p.GetUsedFormats = values.Get("get_used_formats") == "1"
	p.GetFormatsOnly = values.Get("get_formats_only") == "1"
	p.LangEnum = values.Get("lang_enum")

	if v := values.Get("sb_id"); v != "" {
		for _, s := range splitCSV(v) {
			if n, err := strconv.Atoi(s); err == nil {
				p.SBID = append(p.SBID, n)
			}
		}
	}

	return p
}

func parseIntPtr(values url.Values, key string) *int {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatPtr(values url.Values, key string) *float64 {
	v := values.Get(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
