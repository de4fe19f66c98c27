package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bmlt-enabled/tomato/internal/fieldmap"
	"github.com/bmlt-enabled/tomato/internal/query"
)

func rec(row fieldmap.Row) query.Record { return query.Record{Row: row} }

func TestLookupKnownFormats(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatJSONP, FormatXML, FormatCSV, FormatKML, FormatPOI} {
		r, err := Lookup(f)
		require.NoError(t, err)
		require.NotNil(t, r)
	}
}

func TestLookupUnknownFormat(t *testing.T) {
	_, err := Lookup(Format("bogus"))
	require.Error(t, err)
	require.True(t, IsUnknownFormat(err))
}

func TestNamesForNarrowsToFirstRecordWhenFieldAbsent(t *testing.T) {
	m := fieldmap.Map{Fields: []fieldmap.Field{
		{External: "a", Accessor: fieldmap.Path("a")},
		{External: "b", Accessor: fieldmap.Path("b")},
	}}
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"a": fieldmap.String("x")})})
	names, err := NamesFor(m, records)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, names)
}

func TestNamesForReturnsAllNamesWhenNoRecords(t *testing.T) {
	m := fieldmap.Map{Fields: []fieldmap.Field{
		{External: "a", Accessor: fieldmap.Path("a")},
		{External: "b", Accessor: fieldmap.Path("b")},
	}}
	names, err := NamesFor(m, query.SliceIter(nil))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestRenderCSVQuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"name": fieldmap.String(`say "hi"`)})})

	require.NoError(t, RenderCSV(&buf, records, []string{"name"}, ""))
	require.Equal(t, "\"name\"\n\"say \"\"hi\"\"\"\n", buf.String())
}

func TestRenderJSONEscapesAndOrdersFields(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"a": fieldmap.Int(1), "b": fieldmap.String("x\ny")})})

	require.NoError(t, RenderJSON(&buf, records, []string{"a", "b"}, ""))
	require.Equal(t, `[{"a":"1","b":"x\ny"}]`, buf.String())
}

func TestRenderJSONPWrapsCallback(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"a": fieldmap.Int(1)})})

	require.NoError(t, RenderJSONP(&buf, records, []string{"a"}, "myCallback"))
	require.Equal(t, `myCallback([{"a":"1"}]);`, buf.String())
}

func TestRenderCSVEmptyFieldWhenMissingFromRow(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{})})

	require.NoError(t, RenderCSV(&buf, records, []string{"missing"}, ""))
	require.Equal(t, "\"missing\"\n\"\"\n", buf.String())
}

func TestRenderXMLNestsDottedFieldNames(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"meetinginfo.location_text": fieldmap.String("Room 1")})})

	require.NoError(t, RenderXML(&buf, records, []string{"meetinginfo.location_text"}, ""))
	require.Contains(t, buf.String(), "<meetinginfo><location_text>Room 1</location_text></meetinginfo>")
}

func TestRenderPOIHasNoHeaderRow(t *testing.T) {
	var buf bytes.Buffer
	records := query.SliceIter([]query.Record{rec(fieldmap.Row{"lon": fieldmap.Decimal(-1.1), "lat": fieldmap.Decimal(2.2)})})

	require.NoError(t, RenderPOI(&buf, records, []string{"lon", "lat"}, ""))
	require.Equal(t, "\"-1.1\",\"2.2\"\n", buf.String())
}
