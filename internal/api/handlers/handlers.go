// Package handlers implements the query surface's switchers (spec
// §6.1), dispatched from the router's /client_interface/{format} routes.
package handlers

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
	"github.com/bmlt-enabled/tomato/internal/store/postgres"
	"github.com/bmlt-enabled/tomato/internal/translation"
)

// Handlers wires the query engine and the supporting stores into the
// switcher handlers (spec §6.1).
type Handlers struct {
	Engine        *query.Engine
	ServiceExp    query.ServiceExpander
	Geocoder      query.Geocoder
	ServiceBodies *postgres.ServiceBodyRepo
	Formats       *postgres.FormatRepo
	RootServers   *postgres.RootServerRepo
	Translations  *translation.Cache
	Logger        zerolog.Logger
}

// New builds a Handlers from its dependencies.
func New(engine *query.Engine, serviceExp query.ServiceExpander, geocoder query.Geocoder,
	serviceBodies *postgres.ServiceBodyRepo, formatRepo *postgres.FormatRepo, rootServers *postgres.RootServerRepo,
	translations *translation.Cache, logger zerolog.Logger) *Handlers {
	return &Handlers{
		Engine:        engine,
		ServiceExp:    serviceExp,
		Geocoder:      geocoder,
		ServiceBodies: serviceBodies,
		Formats:       formatRepo,
		RootServers:   rootServers,
		Translations:  translations,
		Logger:        logger,
	}
}

var validFormats = map[string]render.Format{
	"json":  render.FormatJSON,
	"jsonp": render.FormatJSONP,
	"xml":   render.FormatXML,
	"csv":   render.FormatCSV,
	"kml":   render.FormatKML,
	"poi":   render.FormatPOI,
}

var contentTypeByFormat = map[render.Format]string{
	render.FormatJSON:  "application/json",
	render.FormatJSONP: "application/javascript",
	render.FormatXML:   "application/xml",
	render.FormatCSV:   "text/csv",
	render.FormatKML:   "application/vnd.google-earth.kml+xml",
	render.FormatPOI:   "text/csv",
}

var dispositionByFormat = map[render.Format]string{
	render.FormatKML: `attachment; filename="SearchResults.kml"`,
	render.FormatPOI: `attachment; filename="SearchResultsPOI.csv"`,
}

// ServeHTTP dispatches a client_interface request to the switcher named
// by the "switcher" query parameter, enforcing the reject rules of spec
// §6.1 before any switcher-specific work runs.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	formatSeg := r.PathValue("format")
	format, ok := validFormats[formatSeg]
	if !ok {
		apierr.Reject(w, r, http.StatusBadRequest, "unknown format")
		return
	}

	switcher := r.URL.Query().Get("switcher")
	callback := r.URL.Query().Get("callback")

	if format == render.FormatJSONP && callback == "" {
		apierr.Reject(w, r, http.StatusBadRequest, "jsonp format requires callback")
		return
	}
	if (format == render.FormatKML || format == render.FormatPOI) && switcher != "GetSearchResults" {
		apierr.Reject(w, r, http.StatusBadRequest, "kml/poi format only valid for GetSearchResults")
		return
	}
	if switcher == "GetNAWSDump" && format != render.FormatCSV {
		apierr.Reject(w, r, http.StatusBadRequest, "GetNAWSDump only supports csv")
		return
	}

	ctx := r.Context()
	values := r.URL.Query()

	switch switcher {
	case "GetSearchResults":
		h.getSearchResults(w, r, ctx, values, format, callback)
	case "GetFormats":
		h.getFormats(w, r, ctx, values, format, callback)
	case "GetServiceBodies":
		h.getServiceBodies(w, r, ctx, values, format, callback)
	case "GetFieldKeys":
		h.getFieldKeys(w, r, format, callback)
	case "GetFieldValues":
		h.getFieldValues(w, r, ctx, values, format, callback)
	case "GetServerInfo":
		h.getServerInfo(w, r, ctx, format, callback)
	case "GetNAWSDump":
		h.getNAWSDump(w, r, ctx, values)
	default:
		apierr.Reject(w, r, http.StatusBadRequest, "unknown switcher")
	}
}

func (h *Handlers) writeRendered(w http.ResponseWriter, r *http.Request, format render.Format, m fieldmap.Map, records *query.RecordIter, callback string) {
	renderer, err := render.Lookup(format)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}
	names, err := render.NamesFor(m, records)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeByFormat[format])
	if disp, ok := dispositionByFormat[format]; ok {
		w.Header().Set("Content-Disposition", disp)
	}
	w.WriteHeader(http.StatusOK)

	if err := renderer(w, records, names, callback); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stream render failed")
	}
}

// parseIDCSV reads a comma-joined-or-repeated id parameter. BMLT clients
// send both "root_server_id=1,2" and "root_server_ids[]=1&root_server_ids[]=2"
// forms; both are accepted here.
func parseIDCSV(values url.Values, scalarKey, listKey string) []int {
	var raw []string
	if v := values.Get(scalarKey); v != "" {
		raw = append(raw, strings.Split(v, ",")...)
	}
	raw = append(raw, values[listKey]...)

	var out []int
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func sortedInts(ids map[int]bool) []int {
	out := make([]int, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
