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

// getFormats implements GetFormats (spec §6.1): filterable by
// root_server_id(s), key_strings[], lang_enum.
func (h *Handlers) getFormats(w http.ResponseWriter, r *http.Request, ctx context.Context, values url.Values, format render.Format, callback string) {
	rootServerIDs := parseIDCSV(values, "root_server_id", "root_server_ids[]")
	keyStrings := values["key_strings[]"]
	lang := values.Get("lang_enum")

	rows, err := h.Formats.List(ctx, rootServerIDs, keyStrings, lang)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	records := make([]query.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, query.Record{Row: fieldmap.Row{
			"id":                 fieldmap.Int(int64(row.ID)),
			"world_id":           fieldmap.String(row.WorldID),
			"key_string":         fieldmap.String(row.KeyString),
			"name_string":        fieldmap.String(row.Name),
			"description_string": fieldmap.String(row.Description),
			"lang":               fieldmap.String(row.Language),
			"root_server_id":     fieldmap.Int(int64(row.RootServerID)),
		}})
	}

	h.writeRendered(w, r, format, fieldmap.All()["format"](), query.SliceIter(records), callback)
}
