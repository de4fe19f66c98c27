package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParamsSignedIDFilterScalarAndList(t *testing.T) {
	values := url.Values{
		"weekday":      {"3"},
		"weekdays[]":   {"-1", "5"},
	}
	p := ParseParams(values)
	require.Equal(t, []int{3, 5}, p.Weekdays.Include)
	require.Equal(t, []int{1}, p.Weekdays.Exclude)
}

func TestParseParamsFormatsOperatorDefaultsToOR(t *testing.T) {
	p := ParseParams(url.Values{})
	require.Equal(t, "OR", p.FormatsOperator)

	p = ParseParams(url.Values{"formats_comparison_operator": {"and"}})
	require.Equal(t, "AND", p.FormatsOperator)
}

func TestParseParamsDataFieldKeysAndSortKeysSplitCSV(t *testing.T) {
	p := ParseParams(url.Values{
		"data_field_key": {"id_bigint, meeting_name ,weekday_tinyint"},
		"sort_keys":      {"weekday_tinyint,start_time"},
	})
	require.Equal(t, []string{"id_bigint", "meeting_name", "weekday_tinyint"}, p.DataFieldKeys)
	require.Equal(t, []string{"weekday_tinyint", "start_time"}, p.SortKeys)
}

func TestParseParamsGeoAndPaging(t *testing.T) {
	p := ParseParams(url.Values{
		"lat_val":                    {"40.1"},
		"long_val":                   {"-74.2"},
		"sort_results_by_distance":   {"1"},
		"page_size":                  {"25"},
		"page_num":                   {"2"},
	})
	require.NotNil(t, p.LatVal)
	require.InDelta(t, 40.1, *p.LatVal, 0.0001)
	require.NotNil(t, p.LongVal)
	require.InDelta(t, -74.2, *p.LongVal, 0.0001)
	require.True(t, p.SortByDistance)
	require.Equal(t, 25, p.PageSize)
	require.Equal(t, 2, p.PageNum)
}

func TestParseParamsMissingNumericFieldsStayNil(t *testing.T) {
	p := ParseParams(url.Values{})
	require.Nil(t, p.LatVal)
	require.Nil(t, p.LongVal)
	require.Nil(t, p.StartsAfterH)
	require.Equal(t, 0, p.PageSize)
}

func TestParseParamsInvalidNumericIgnored(t *testing.T) {
	p := ParseParams(url.Values{"lat_val": {"not-a-number"}})
	require.Nil(t, p.LatVal)
}

func TestIDFilterEmpty(t *testing.T) {
	require.True(t, IDFilter{}.Empty())
	require.False(t, IDFilter{Include: []int{1}}.Empty())
	require.False(t, IDFilter{Exclude: []int{1}}.Empty())
}

func TestParseParamsSBIDForNAWSDump(t *testing.T) {
	p := ParseParams(url.Values{"sb_id": {"1,2,3"}})
	require.Equal(t, []int{1, 2, 3}, p.SBID)
}
