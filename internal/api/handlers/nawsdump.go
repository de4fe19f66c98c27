package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/render"
)

// getNAWSDump implements GetNAWSDump (spec §6.1): requires sb_id,
// expands it (and its descendants) through the service-body forest, and
// streams a CSV export attachment named "BMLT.csv". The reject rules in
// ServeHTTP already confine this switcher to format=csv.
func (h *Handlers) getNAWSDump(w http.ResponseWriter, r *http.Request, ctx context.Context, values url.Values) {
	sbIDs := parseIDCSV(values, "sb_id", "sb_id[]")
	if len(sbIDs) == 0 {
		apierr.Reject(w, r, http.StatusBadRequest, "sb_id required")
		return
	}

	want := map[int]bool{}
	for _, id := range sbIDs {
		want[id] = true
	}
	for _, id := range sbIDs {
		descendants, err := h.ServiceExp.Descendants(ctx, id)
		if err != nil {
			apierr.ServerError(w, r, err)
			return
		}
		for _, d := range descendants {
			want[d] = true
		}
	}

	records, err := h.Engine.NAWSDump(ctx, sortedInts(want))
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	renderer, err := render.Lookup(render.FormatCSV)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}
	names, err := render.NamesFor(fieldmap.All()["naws_dump"](), records)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="BMLT.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := renderer(w, records, names, ""); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("stream render failed")
	}
}
