// Package mcpserver exposes the query engine's search operation as a
// Model Context Protocol tool, grounded on the teacher's
// internal/mcp/tools (mark3labs/mcp-go) and the pack's
// Sashimimochi-solr-mcp-go, which wraps a search backend the same way.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	mcpgoserver "github.com/mark3labs/mcp-go/server"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
)

// Server wraps an MCP server exposing Tomato's meeting search as a tool
// for agentic clients, alongside the HTTP client_interface surface.
type Server struct {
	mcp      *mcpgoserver.MCPServer
	engine   *query.Engine
	services query.ServiceExpander
	geocoder query.Geocoder
}

// NewServer builds a Server with the search_meetings tool registered.
func NewServer(engine *query.Engine, services query.ServiceExpander, geocoder query.Geocoder, name, version string) *Server {
	s := &Server{
		mcp:      mcpgoserver.NewMCPServer(name, version, mcpgoserver.WithToolCapabilities(false)),
		engine:   engine,
		services: services,
		geocoder: geocoder,
	}
	s.mcp.AddTool(searchMeetingsTool(), s.searchMeetingsHandler)
	return s
}

// Handler exposes the MCP server over Streamable HTTP, so `tomato serve`
// can mount it alongside the HTTP client_interface surface (spec §6's
// "HTTP+MCP query surface").
func (s *Server) Handler() http.Handler {
	return mcpgoserver.NewStreamableHTTPServer(s.mcp)
}

func searchMeetingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_meetings",
		Description: "Search the federated meeting directory by service body, format, location, and free text, mirroring the GetSearchResults client_interface switcher.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_server_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Limit results to these root server ids",
				},
				"service_body_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Limit results to these service body ids",
				},
				"recursive": map[string]interface{}{
					"type":        "boolean",
					"description": "Include descendants of service_body_ids",
				},
				"format_ids": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "integer"},
					"description": "Limit results to meetings carrying these format ids",
				},
				"search_string": map[string]interface{}{
					"type":        "string",
					"description": "Free-text search, or a street address when search_string_is_an_address is true",
				},
				"search_string_is_an_address": map[string]interface{}{
					"type":        "boolean",
					"description": "Geocode search_string and search near it instead of matching text",
				},
				"lat_val": map[string]interface{}{
					"type":        "number",
					"description": "Center latitude for a geospatial search",
				},
				"long_val": map[string]interface{}{
					"type":        "number",
					"description": "Center longitude for a geospatial search",
				},
				"geo_width_km": map[string]interface{}{
					"type":        "number",
					"description": "Positive: radius in km. Negative: nearest |N| meetings.",
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of meetings to return (0 = no limit)",
				},
				"page_num": map[string]interface{}{
					"type":        "integer",
					"description": "1-based page number, used with page_size",
				},
			},
		},
	}
}

type searchMeetingsArgs struct {
	RootServerIDs            []int    `json:"root_server_ids"`
	ServiceBodyIDs           []int    `json:"service_body_ids"`
	Recursive                bool     `json:"recursive"`
	FormatIDs                []int    `json:"format_ids"`
	SearchString             string   `json:"search_string"`
	SearchStringIsAnAddress  bool     `json:"search_string_is_an_address"`
	LatVal                   *float64 `json:"lat_val"`
	LongVal                  *float64 `json:"long_val"`
	GeoWidthKM               *float64 `json:"geo_width_km"`
	PageSize                 int      `json:"page_size"`
	PageNum                  int      `json:"page_num"`
}

// toValues turns the tool's typed arguments into the same url.Values
// shape query.ParseParams already knows how to read, so the MCP tool
// and the HTTP GetSearchResults switcher share one parsing path.
func (a searchMeetingsArgs) toValues() url.Values {
	v := url.Values{}
	for _, id := range a.RootServerIDs {
		v.Add("root_server_ids[]", strconv.Itoa(id))
	}
	for _, id := range a.ServiceBodyIDs {
		v.Add("services[]", strconv.Itoa(id))
	}
	if a.Recursive {
		v.Set("recursive", "1")
	}
	for _, id := range a.FormatIDs {
		v.Add("formats[]", strconv.Itoa(id))
	}
	if a.SearchString != "" {
		v.Set("SearchString", a.SearchString)
	}
	if a.SearchStringIsAnAddress {
		v.Set("StringSearchIsAnAddress", "1")
	}
	if a.LatVal != nil {
		v.Set("lat_val", strconv.FormatFloat(*a.LatVal, 'f', -1, 64))
	}
	if a.LongVal != nil {
		v.Set("long_val", strconv.FormatFloat(*a.LongVal, 'f', -1, 64))
	}
	if a.GeoWidthKM != nil {
		v.Set("geo_width_km", strconv.FormatFloat(*a.GeoWidthKM, 'f', -1, 64))
	}
	if a.PageSize != 0 {
		v.Set("page_size", strconv.Itoa(a.PageSize))
	}
	if a.PageNum != 0 {
		v.Set("page_num", strconv.Itoa(a.PageNum))
	}
	return v
}

func (s *Server) searchMeetingsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchMeetingsArgs
	if request.Params.Arguments != nil {
		raw, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
		}
	}

	params := query.ParseParams(args.toValues())
	if err := params.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	plan, err := query.Build(ctx, params, s.services, s.geocoder)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build search plan", err), nil
	}

	records, err := s.engine.Search(ctx, plan, "meeting")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("search failed", err), nil
	}
	defer records.Close()

	m := fieldmap.All()["meeting"]()
	items := make([]map[string]string, 0)
	for {
		rec, ok, err := records.Next()
		if err != nil {
			return mcp.NewToolResultErrorFromErr("search failed", err), nil
		}
		if !ok {
			break
		}
		item := make(map[string]string, len(m.Fields))
		for _, nv := range m.Project(rec.Row, nil) {
			item[nv.Name] = nv.Value.Render()
		}
		items = append(items, item)
	}

	result, err := mcp.NewToolResultJSON(map[string]interface{}{
		"meetings": items,
		"count":    len(items),
	})
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to build response", err), nil
	}
	return result, nil
}
