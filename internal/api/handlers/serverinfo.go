package handlers

import (
	"context"
	"net/http"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
)

// aggregatorVersion is the fixed GetServerInfo version string Tomato
// reports for its own query surface, independent of any one federated
// root server's upstream version.
const aggregatorVersion = "5.0.0"

// getServerInfo implements GetServerInfo (spec §6.1): a single fixed
// descriptor summarizing the whole federation rather than one upstream
// root, since Tomato itself is being described, not a member server.
// Languages are the union of every configured root's reported languages
// (falling back to "en" when none have reported yet); center is the
// unweighted mean of every root's reported center, or the origin when no
// root has one (there is no natural single center for a federation).
func (h *Handlers) getServerInfo(w http.ResponseWriter, r *http.Request, ctx context.Context, format render.Format, callback string) {
	roots, err := h.RootServers.List(ctx)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	seen := map[string]bool{}
	var langs []string
	var latSum, lonSum float64
	var centerCount int
	for _, rs := range roots {
		for _, l := range rs.ServerInfo.Languages {
			if l != "" && !seen[l] {
				seen[l] = true
				langs = append(langs, l)
			}
		}
		if rs.ServerInfo.CenterLatitude != nil && rs.ServerInfo.CenterLongitude != nil {
			latSum += *rs.ServerInfo.CenterLatitude
			lonSum += *rs.ServerInfo.CenterLongitude
			centerCount++
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	var centerLat, centerLon float64
	if centerCount > 0 {
		centerLat = latSum / float64(centerCount)
		centerLon = lonSum / float64(centerCount)
	}

	catalog := fieldmap.FieldKeyCatalog()
	keys := make([]fieldmap.Value, 0, len(catalog))
	for _, k := range catalog {
		keys = append(keys, fieldmap.String(k.Key))
	}
	langValues := make([]fieldmap.Value, 0, len(langs))
	for _, l := range langs {
		langValues = append(langValues, fieldmap.String(l))
	}

	records := []query.Record{{Row: fieldmap.Row{
		"version":         fieldmap.String(aggregatorVersion),
		"langs":           fieldmap.List(langValues),
		"center_latitude": fieldmap.Decimal(centerLat),
		"center_longitude": fieldmap.Decimal(centerLon),
		"available_keys":  fieldmap.List(keys),
	}}}

	h.writeRendered(w, r, format, fieldmap.All()["server_info"](), query.SliceIter(records), callback)
}
