package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
	"github.com/rs/zerolog"
)

// getSearchResults implements GetSearchResults (spec §6.1, §4.6): builds
// a Plan from the request's parameters, runs it, and either renders the
// meeting rows, the used-formats supplement, or both per
// get_used_formats/get_formats_only.
func (h *Handlers) getSearchResults(w http.ResponseWriter, r *http.Request, ctx context.Context, values url.Values, format render.Format, callback string) {
	params := query.ParseParams(values)
	if err := params.Validate(); err != nil {
		apierr.Reject(w, r, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := query.Build(ctx, params, h.ServiceExp, h.Geocoder)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	var formatIDs []int
	if params.GetUsedFormats || params.GetFormatsOnly {
		formatIDs, err = h.Engine.UsedFormats(ctx, plan)
		if err != nil {
			apierr.ServerError(w, r, err)
			return
		}
	}

	if params.GetFormatsOnly {
		// Spec §8 scenario 6: only a "formats" array, no "meetings" key.
		formatRows := h.formatRecords(ctx, formatIDs)
		if format != render.FormatJSON && format != render.FormatJSONP {
			h.writeRendered(w, r, format, fieldmap.All()["format"](), query.SliceIter(formatRows), callback)
			return
		}
		h.writeJSONEnvelope(w, r, format, callback, map[string]*query.RecordIter{"formats": query.SliceIter(formatRows)})
		return
	}

	records, err := h.Engine.Search(ctx, plan, "meeting")
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	if params.GetUsedFormats && (format == render.FormatJSON || format == render.FormatJSONP) {
		formatRows := h.formatRecords(ctx, formatIDs)
		h.writeJSONEnvelope(w, r, format, callback, map[string]*query.RecordIter{"meetings": records, "formats": query.SliceIter(formatRows)})
		return
	}

	m := fieldmap.All()["meeting"]()
	h.writeRendered(w, r, format, m, records, callback)
}

// writeJSONEnvelope renders one or more named record sets as a single
// JSON object, keyed by name, each value a JSON array in the matching
// field map's column order. Non-JSON formats have no multi-table
// envelope to reach for (csv/xml/kml/poi all assume one homogeneous row
// shape), so this is only ever called for json/jsonp.
//
// Each set's records stream straight to w as they're rendered rather
// than being assembled in a buffer first, so a client disconnect
// during e.g. the "meetings" array still unwinds through RenderJSON's
// writes, cancels the request context, and releases the underlying
// cursor (spec §5) instead of waiting for a full body to materialize.
func (h *Handlers) writeJSONEnvelope(w http.ResponseWriter, r *http.Request, format render.Format, callback string, sets map[string]*query.RecordIter) {
	order := []string{"meetings", "formats"}

	w.Header().Set("Content-Type", contentTypeByFormat[format])
	w.WriteHeader(http.StatusOK)

	logFailure := func(err error) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stream render failed")
	}

	if format == render.FormatJSONP {
		if _, err := fmt.Fprintf(w, "%s(", callback); err != nil {
			logFailure(err)
			return
		}
	}

	if _, err := io.WriteString(w, "{"); err != nil {
		logFailure(err)
		return
	}
	first := true
	for _, key := range order {
		records, ok := sets[key]
		if !ok {
			continue
		}
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				logFailure(err)
				return
			}
		}
		first = false

		m := fieldmap.All()[mapNameFor(key)]()
		names, err := render.NamesFor(m, records)
		if err != nil {
			logFailure(err)
			return
		}
		if _, err := fmt.Fprintf(w, "%q:", key); err != nil {
			logFailure(err)
			return
		}
		if err := render.RenderJSON(w, records, names, ""); err != nil {
			logFailure(err)
			return
		}
	}
	if _, err := io.WriteString(w, "}"); err != nil {
		logFailure(err)
		return
	}

	if format == render.FormatJSONP {
		if _, err := io.WriteString(w, ");"); err != nil {
			logFailure(err)
		}
	}
}

func mapNameFor(envelopeKey string) string {
	if envelopeKey == "formats" {
		return "format"
	}
	return "meeting"
}

func (h *Handlers) formatRecords(ctx context.Context, formatIDs []int) []query.Record {
	if len(formatIDs) == 0 {
		return nil
	}
	rows, err := h.Formats.List(ctx, nil, nil, "en")
	if err != nil {
		return nil
	}
	want := make(map[int]bool, len(formatIDs))
	for _, id := range formatIDs {
		want[id] = true
	}
	var out []query.Record
	for _, row := range rows {
		if !want[row.ID] {
			continue
		}
		out = append(out, query.Record{Row: fieldmap.Row{
			"id":                 fieldmap.Int(int64(row.ID)),
			"world_id":           fieldmap.String(row.WorldID),
			"key_string":         fieldmap.String(row.KeyString),
			"name_string":        fieldmap.String(row.Name),
			"description_string": fieldmap.String(row.Description),
			"lang":               fieldmap.String(row.Language),
			"root_server_id":     fieldmap.Int(int64(row.RootServerID)),
		}})
	}
	return out
}
