package query

import "context"

// GeoMode selects how the geospatial clause is applied.
type GeoMode int

const (
	GeoNone GeoMode = iota
	GeoRadius
	GeoNearestN
)

// Geo is the resolved geospatial query: a center point plus either a
// radius in km or a nearest-N count (spec §4.6: "if width > 0 -> radius
// search... if width < 0 -> nearest-|N|").
type Geo struct {
	Mode      GeoMode
	Lat, Lon  float64
	RadiusKM  float64
	N         int
	AnnotateDistance bool
}

// ServiceExpander resolves a service-body id to its descendant ids
// (spec §4.6: "recursive expands to all descendants").
type ServiceExpander interface {
	Descendants(ctx context.Context, serviceBodyID int) ([]int, error)
}

// Geocoder resolves a free-text address to coordinates for the
// SearchString-as-address path (spec §4.6 "address" row).
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, err error)
}

// Plan is the fully resolved filter/sort/paging specification the
// engine compiles into SQL.
type Plan struct {
	Params Params
	Geo    *Geo

	// HasRequiredFilter reports whether the "required-filter" rule (spec
	// §4.6) is satisfied. If false, the engine must return an empty
	// stream rather than scan the whole table.
	HasRequiredFilter bool

	// Impossible is set when a geocoder failure (spec §7 item 5) means
	// the geospatial clause can never match. The engine returns a
	// well-formed empty result without querying, rather than erroring.
	Impossible bool

	ServicesExpanded IDFilter
}

// Build resolves a Plan from Params, expanding recursive service
// filters and geocoding an address-mode SearchString. It does not touch
// the store for anything beyond those two operations.
func Build(ctx context.Context, p Params, svc ServiceExpander, geo Geocoder) (Plan, error) {
	plan := Plan{Params: p, ServicesExpanded: p.Services}

	if p.ServicesRecursive && !p.Services.Empty() {
		expanded, err := expandServices(ctx, svc, p.Services)
		if err != nil {
			return Plan{}, err
		}
		plan.ServicesExpanded = expanded
	}

	g, err := resolveGeo(ctx, p, geo)
	if err != nil {
		// Geocoder failure: substitute an impossible predicate so the
		// response is a well-formed empty result rather than a 500
		// (spec §7 item 5, §4.9).
		plan.Impossible = true
		plan.HasRequiredFilter = true
		return plan, nil
	}
	plan.Geo = g

	plan.HasRequiredFilter = !p.MeetingIDs.Empty() ||
		len(plan.ServicesExpanded.Include) > 0 ||
		len(p.Formats.Include) > 0 ||
		len(p.RootServers.Include) > 0 ||
		(p.MeetingKey != "" && p.MeetingKeyValue != "") ||
		p.SearchString != "" ||
		g != nil

	return plan, nil
}

func expandServices(ctx context.Context, svc ServiceExpander, f IDFilter) (IDFilter, error) {
	expand := func(ids []int) ([]int, error) {
		seen := make(map[int]bool)
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range ids {
			descendants, err := svc.Descendants(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, d := range descendants {
				seen[d] = true
			}
		}
		out := make([]int, 0, len(seen))
		for id := range seen {
			out = append(out, id)
		}
		return out, nil
	}

	include, err := expand(f.Include)
	if err != nil {
		return IDFilter{}, err
	}
	exclude, err := expand(f.Exclude)
	if err != nil {
		return IDFilter{}, err
	}
	return IDFilter{Include: include, Exclude: exclude}, nil
}

const milesPerKM = 0.621371

// resolveGeo implements spec §4.6's geospatial and address rows. A
// geocoder failure here (per §4.9/§7) is returned as an error; Build
// turns that into the "impossible predicate" empty-stream behavior.
func resolveGeo(ctx context.Context, p Params, geo Geocoder) (*Geo, error) {
	if p.LatVal != nil && p.LongVal != nil && (p.GeoWidthMiles != nil || p.GeoWidthKM != nil) {
		g := &Geo{Lat: *p.LatVal, Lon: *p.LongVal, AnnotateDistance: true}
		width := 0.0
		if p.GeoWidthKM != nil {
			width = *p.GeoWidthKM
		} else {
			width = *p.GeoWidthMiles / milesPerKM
		}
		if width >= 0 {
			g.Mode = GeoRadius
			g.RadiusKM = width
		} else {
			g.Mode = GeoNearestN
			g.N = int(-width)
		}
		return g, nil
	}

	if p.SearchString != "" && p.SearchStringIsAnAddress {
		lat, lon, err := geo.Geocode(ctx, p.SearchString)
		if err != nil {
			return nil, err
		}
		g := &Geo{Lat: lat, Lon: lon, AnnotateDistance: true}
		radius := -10.0
		if p.SearchStringRadius != nil {
			radius = *p.SearchStringRadius
		}
		if radius >= 0 {
			g.Mode = GeoRadius
			g.RadiusKM = radius
		} else {
			g.Mode = GeoNearestN
			g.N = int(-radius)
		}
		return g, nil
	}

	if p.SortByDistance {
		// Distance sort requested with no center point: there's nothing
		// to sort by, so it's silently ignored rather than erroring.
		return nil, nil
	}

	return nil, nil
}
