// Package render streams query results out in the handful of wire
// formats the aggregator's read API exposes, all driven by the same
// field-map declaration a query was projected through (spec C7, §4.7).
// Every renderer writes incrementally rather than buffering the full
// result set, mirroring the teacher's streaming response writers in
// internal/api/render.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
)

// Format identifies one of the wire formats a switcher can be rendered
// as (spec §6.1 format path segment).
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONP Format = "jsonp"
	FormatXML   Format = "xml"
	FormatCSV   Format = "csv"
	FormatKML   Format = "kml"
	FormatPOI   Format = "poi"
)

// Renderer writes a record stream to w using the column order declared
// by names (spec §4.7: "header synthesized from the field map"),
// pulling one record at a time from records instead of requiring a
// pre-materialized slice (spec §5: "no in-memory buffering of the full
// result set"). callback is only meaningful for FormatJSONP.
type Renderer func(w io.Writer, records *query.RecordIter, names []string, callback string) error

// Registry maps a format segment to its renderer (spec §4.7: "renderer
// registry keyed by the format path segment", generalized from the
// teacher's single negotiated content-type).
func Registry() map[Format]Renderer {
	return map[Format]Renderer{
		FormatJSON:  RenderJSON,
		FormatJSONP: RenderJSONP,
		FormatXML:   RenderXML,
		FormatCSV:   RenderCSV,
		FormatKML:   RenderKML,
		FormatPOI:   RenderPOI,
	}
}

// namesFor returns the declared column order for a map, optionally
// narrowed to a projection's actually-populated keys on the first
// record (spec §4.7 CSV rule: "omitting fields whose qualifier rejects
// the first record"). It peeks at records' first entry without
// consuming it, so the iterator is left untouched for the renderer
// that runs afterward.
func namesFor(m fieldmap.Map, records *query.RecordIter) ([]string, error) {
	all := m.Names()
	first, ok, err := records.Peek()
	if err != nil || !ok {
		return all, err
	}
	out := make([]string, 0, len(all))
	for _, n := range all {
		if _, ok := first.Row[n]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// NamesFor exposes namesFor for callers (HTTP handlers) that already
// hold a compiled Map and need the header row ahead of rendering.
func NamesFor(m fieldmap.Map, records *query.RecordIter) ([]string, error) {
	return namesFor(m, records)
}

func valueOrEmpty(row fieldmap.Row, name string) string {
	v, ok := row[name]
	if !ok {
		return ""
	}
	return v.Render()
}

var errUnknownFormat = fmt.Errorf("unknown render format")

// Lookup resolves a Format, reporting errUnknownFormat-wrapped failure
// for anything not in Registry (spec §6.1: "unknown format... respond
// 400 with empty body").
func Lookup(f Format) (Renderer, error) {
	r, ok := Registry()[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownFormat, f)
	}
	return r, nil
}

// IsUnknownFormat reports whether err originated from Lookup failing to
// find a renderer.
func IsUnknownFormat(err error) bool {
	return errors.Is(err, errUnknownFormat)
}
