package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bmlt-enabled/tomato/internal/api/apierr"
	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
	"github.com/bmlt-enabled/tomato/internal/render"
)

// getServiceBodies implements GetServiceBodies (spec §6.1, §8 scenario
// 5): root_server_id(s) and services[] narrow the set, recursive=1
// expands services[] to their descendants, parents=1 also pulls in each
// selected body's ancestor chain. Top-level bodies report parent_id=0,
// which the service_bodies field map's parentIDBoundary accessor
// already handles from the stored NULL.
func (h *Handlers) getServiceBodies(w http.ResponseWriter, r *http.Request, ctx context.Context, values url.Values, format render.Format, callback string) {
	rootServerIDs := parseIDCSV(values, "root_server_id", "root_server_ids[]")
	serviceIDs := parseIDCSV(values, "services", "services[]")
	recursive := values.Get("recursive") == "1"
	withParents := values.Get("parents") == "1"

	all, err := h.ServiceBodies.List(ctx, rootServerIDs, nil)
	if err != nil {
		apierr.ServerError(w, r, err)
		return
	}

	selected := selectServiceBodies(all, serviceIDs, recursive, withParents, h.ServiceExp, ctx)

	records := make([]query.Record, 0, len(selected))
	for _, b := range selected {
		parentID := fieldmap.None()
		if b.ParentID != nil {
			parentID = fieldmap.Int(int64(*b.ParentID))
		}
		records = append(records, query.Record{Row: fieldmap.Row{
			"id":             fieldmap.Int(int64(b.ID)),
			"parent_id":      parentID,
			"name":           fieldmap.String(b.Name),
			"type":           fieldmap.String(string(b.Type)),
			"description":    fieldmap.String(b.Description),
			"url":            fieldmap.String(b.URL),
			"helpline":       fieldmap.String(b.Helpline),
			"world_id":       fieldmap.String(b.WorldID),
			"num_meetings":   fieldmap.Int(int64(b.NumMeetings)),
			"num_groups":     fieldmap.Int(int64(b.NumGroups)),
			"root_server_id": fieldmap.Int(int64(b.RootServerID)),
		}})
	}

	h.writeRendered(w, r, format, fieldmap.All()["service_bodies"](), query.SliceIter(records), callback)
}

func selectServiceBodies(all []servicebodies.ServiceBody, serviceIDs []int, recursive, withParents bool, exp query.ServiceExpander, ctx context.Context) []servicebodies.ServiceBody {
	if len(serviceIDs) == 0 {
		return all
	}

	byID := make(map[int]servicebodies.ServiceBody, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}

	want := make(map[int]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		want[id] = true
	}

	if recursive {
		for _, id := range serviceIDs {
			descendants, err := exp.Descendants(ctx, id)
			if err != nil {
				continue
			}
			for _, d := range descendants {
				want[d] = true
			}
		}
	}

	if withParents {
		for id := range map[int]bool(cloneBoolMap(want)) {
			walkAncestors(byID, id, want)
		}
	}

	out := make([]servicebodies.ServiceBody, 0, len(want))
	for _, b := range all {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

func cloneBoolMap(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func walkAncestors(byID map[int]servicebodies.ServiceBody, id int, want map[int]bool) {
	seen := map[int]bool{}
	for {
		b, ok := byID[id]
		if !ok || b.ParentID == nil || seen[*b.ParentID] {
			return
		}
		seen[*b.ParentID] = true
		want[*b.ParentID] = true
		id = *b.ParentID
	}
}
