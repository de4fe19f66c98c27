package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
)

func TestParseNAWSDumpCSVMatchesColumnsByHeaderName(t *testing.T) {
	body := []byte("zip,bmlt_id,unpublished,deleted\n07030,123,1,0\n")

	rows, err := parseNAWSDumpCSV(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "123", rows[0].BMLTID)
	require.Equal(t, "07030", rows[0].Zip)
	require.Equal(t, "1", rows[0].Unpublished)
}

func TestParseNAWSDumpCSVMissingHeaderFails(t *testing.T) {
	_, err := parseNAWSDumpCSV([]byte(""))
	require.Error(t, err)
}

func TestIsUnpublishedOrDeleted(t *testing.T) {
	require.True(t, isUnpublishedOrDeleted(meetings.DumpRow{Unpublished: "1"}))
	require.True(t, isUnpublishedOrDeleted(meetings.DumpRow{Deleted: "1"}))
	require.False(t, isUnpublishedOrDeleted(meetings.DumpRow{Unpublished: "0", Deleted: "0"}))
}

func TestFetchNAWSDumpPropagatesFetchError(t *testing.T) {
	url := nawsDumpURL("https://example.org", 7)
	f := urlFetcher{errs: map[string]error{url: context.DeadlineExceeded}}

	_, err := fetchNAWSDump(context.Background(), f, "https://example.org", 7)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchNAWSDumpParsesBody(t *testing.T) {
	url := nawsDumpURL("https://example.org", 7)
	body := []byte("bmlt_id,unpublished,deleted\n99,1,0\n")
	f := urlFetcher{responses: map[string][]byte{url: body}}

	rows, err := fetchNAWSDump(context.Background(), f, "https://example.org", 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "99", rows[0].BMLTID)
}
