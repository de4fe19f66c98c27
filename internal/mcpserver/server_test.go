package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestSearchMeetingsToolSchema(t *testing.T) {
	tool := searchMeetingsTool()
	require.Equal(t, "search_meetings", tool.Name)
	require.Equal(t, "object", tool.InputSchema.Type)
	for _, key := range []string{"root_server_ids", "service_body_ids", "recursive", "format_ids",
		"search_string", "search_string_is_an_address", "lat_val", "long_val", "geo_width_km",
		"page_size", "page_num"} {
		_, ok := tool.InputSchema.Properties[key]
		require.True(t, ok, "expected input schema property %q", key)
	}
}

func TestSearchMeetingsArgsToValues(t *testing.T) {
	lat, lon, width := 40.1, -74.2, -5.0
	args := searchMeetingsArgs{
		RootServerIDs:           []int{1, 2},
		ServiceBodyIDs:          []int{3},
		Recursive:               true,
		FormatIDs:               []int{7, 8},
		SearchString:            "wednesday night",
		SearchStringIsAnAddress: true,
		LatVal:                  &lat,
		LongVal:                 &lon,
		GeoWidthKM:              &width,
		PageSize:                10,
		PageNum:                 2,
	}

	values := args.toValues()
	require.Equal(t, []string{"1", "2"}, values["root_server_ids[]"])
	require.Equal(t, []string{"3"}, values["services[]"])
	require.Equal(t, "1", values.Get("recursive"))
	require.Equal(t, []string{"7", "8"}, values["formats[]"])
	require.Equal(t, "wednesday night", values.Get("SearchString"))
	require.Equal(t, "1", values.Get("StringSearchIsAnAddress"))
	require.Equal(t, "40.1", values.Get("lat_val"))
	require.Equal(t, "-74.2", values.Get("long_val"))
	require.Equal(t, "-5", values.Get("geo_width_km"))
	require.Equal(t, "10", values.Get("page_size"))
	require.Equal(t, "2", values.Get("page_num"))
}

func TestSearchMeetingsArgsToValuesOmitsZeroValues(t *testing.T) {
	values := searchMeetingsArgs{}.toValues()
	require.Empty(t, values.Get("recursive"))
	require.Empty(t, values.Get("lat_val"))
	require.Empty(t, values.Get("page_size"))
}

func TestSearchMeetingsHandlerRejectsInvalidArguments(t *testing.T) {
	s := &Server{}
	badLat := 999.0
	raw, err := json.Marshal(searchMeetingsArgs{LatVal: &badLat})
	require.NoError(t, err)

	var argMap map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &argMap))

	req := mcp.CallToolRequest{}
	req.Params.Arguments = argMap

	result, err := s.searchMeetingsHandler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.IsError)
}

func TestSearchMeetingsHandlerRejectsMalformedArguments(t *testing.T) {
	s := &Server{}
	req := mcp.CallToolRequest{}
	req.Params.Arguments = "not an object"

	result, err := s.searchMeetingsHandler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.IsError)
}
