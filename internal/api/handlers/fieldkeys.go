package handlers

import (
	"net/http"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
)

var fieldKeysMap = fieldmap.Map{
	Name: "field_keys",
	Fields: []fieldmap.Field{
		{External: "key", Accessor: fieldmap.Path("key")},
		{External: "description", Accessor: fieldmap.Path("description")},
	},
}

// getFieldKeys implements GetFieldKeys (spec §6.1): a fixed catalog of
// queryable meeting keys, no request parameters involved.
func (h *Handlers) getFieldKeys(w http.ResponseWriter, r *http.Request, format render.Format, callback string) {
	catalog := fieldmap.FieldKeyCatalog()
	records := make([]query.Record, 0, len(catalog))
	for _, k := range catalog {
		records = append(records, query.Record{Row: fieldmap.Row{
			"key":         fieldmap.String(k.Key),
			"description": fieldmap.String(k.Description),
		}})
	}
	h.writeRendered(w, r, format, fieldKeysMap, query.SliceIter(records), callback)
}
