package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
)

var fieldValuesMap = fieldmap.Map{
	Name: "field_values",
	Fields: []fieldmap.Field{
		{External: "value", Accessor: fieldmap.Path("value")},
		{External: "ids", Accessor: fieldmap.Path("ids")},
	},
}

// getFieldValues implements GetFieldValues (spec §6.1): meeting_key
// names the field to enumerate, root_server_id(s) narrows the meeting
// set. A non-searchable meeting_key is rejected with an empty 400 body
// (spec §6.1 reject rules), not resolved against the engine at all.
func (h *Handlers) getFieldValues(w http.ResponseWriter, r *http.Request, ctx context.Context, values url.Values, format render.Format, callback string) {
	key := values.Get("meeting_key")
	if !fieldmap.SearchableKeys()[key] {
		apierr.Reject(w, r, http.StatusBadRequest, "non-searchable meeting_key")
		return
	}

	rootServerIDs := parseIDCSV(values, "root_server_id", "root_server_ids[]")

	fvs, err := h.Engine.FieldValues(ctx, rootServerIDs, key)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	records := make([]query.Record, 0, len(fvs))
	for _, fv := range fvs {
		ids := make([]fieldmap.Value, 0, len(fv.IDs))
		for _, id := range fv.IDs {
			ids = append(ids, fieldmap.Int(int64(id)))
		}
		records = append(records, query.Record{Row: fieldmap.Row{
			"value": fieldmap.String(fv.Value),
			"ids":   fieldmap.List(ids),
		}})
	}

	h.writeRendered(w, r, format, fieldValuesMap, query.SliceIter(records), callback)
}
