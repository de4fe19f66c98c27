package importer

import (
	"context"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bmlt-enabled/tomato/internal/config"
	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
)

func TestIgnoredBodySetBuildsLookupMap(t *testing.T) {
	s := ignoredBodySet([]int{1, 2})
	require.True(t, s[1])
	require.False(t, s[3])
}

func TestParseSourceIDParsesValidInteger(t *testing.T) {
	id, ok := parseSourceID("42")
	require.True(t, ok)
	require.Equal(t, 42, id)
}

func TestParseSourceIDRejectsNonNumeric(t *testing.T) {
	_, ok := parseSourceID("abc")
	require.False(t, ok)
}

// fakeFetcher serves canned upstream switcher responses keyed by
// switcher name, modeling a single root server's semantic-protocol
// endpoint without a real HTTP round trip.
type fakeFetcher struct {
	responses map[string]string
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string]string{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switcher := u.Query().Get("switcher")
	f.calls[switcher]++
	body, ok := f.responses[switcher]
	if !ok {
		return []byte("[]"), nil
	}
	return []byte(body), nil
}

const serverInfoJSON = `[{"version":"2.20.0","langs":"en","centerLatitude":"40.0","centerLongitude":"-74.0"}]`

func serviceBodiesJSON() string {
	return `[
		{"id":"1","parent_id":"0","name":"Region","type":"RS","url":"https://example.org/r"},
		{"id":"2","parent_id":"1","name":"Area","type":"AS","url":"https://example.org/a"}
	]`
}

func formatsJSON() string {
	return `[{"id":"1","key_string":"O","name_string":"Open","description_string":"Open meeting","world_id":"","lang":"en"}]`
}

func meetingsJSON() string {
	return `[{
		"id":"101","service_body_bigint":"2","meeting_name":"Wednesday Night",
		"weekday_tinyint":"4","start_time":"19:00:00","duration_time":"01:00",
		"lang_enum":"en","format_shared_id_list":"1","published":"1",
		"latitude":"40.01","longitude":"-74.02"
	}]`
}

func newTestOrchestrator(f *fakeFetcher, cfg config.ImportConfig) *Orchestrator {
	return NewOrchestrator(f, cfg, zerolog.Nop())
}

// TestImportRootFullPipelineWiresBodiesFormatsAndMeetings covers the
// full per-root sequence (spec §4.4): bodies -> formats -> meetings,
// with service body's parent_id, the meeting's format link, and the
// recount rollup all resolved off the same pass's local ids.
func TestImportRootFullPipelineWiresBodiesFormatsAndMeetings(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	fetcher := newFakeFetcher()
	fetcher.responses["GetServerInfo"] = serverInfoJSON
	fetcher.responses["GetServiceBodies"] = serviceBodiesJSON()
	fetcher.responses["GetFormats"] = formatsJSON()
	fetcher.responses["GetSearchResults"] = meetingsJSON()

	o := newTestOrchestrator(fetcher, config.ImportConfig{})
	root := rootservers.RootServer{URL: "https://root-x.example.org", Name: "Root X"}
	id, err := repo.RootServers().Upsert(ctx, root)
	require.NoError(t, err)
	root.ID = id

	require.NoError(t, o.ImportRoot(ctx, repo, root))

	bodies, err := repo.ServiceBodies().List(ctx, []int{id}, nil)
	require.NoError(t, err)
	require.Len(t, bodies, 2)

	var area, region int
	for _, b := range bodies {
		if b.Name == "Area" {
			area = b.ID
		} else {
			region = b.ID
		}
	}

	var areaParent *int
	for _, b := range bodies {
		if b.ID == area {
			areaParent = b.ParentID
		}
	}
	require.NotNil(t, areaParent)
	require.Equal(t, region, *areaParent)

	meetingCount, err := repo.Meetings().CountActive(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, meetingCount)

	roots, err := repo.RootServers().List(ctx)
	require.NoError(t, err)
	var updated rootservers.RootServer
	for _, r := range roots {
		if r.ID == id {
			updated = r
		}
	}
	require.Equal(t, 1, updated.NumMeetings, "recount must roll the new meeting up to the root")
	require.NotNil(t, updated.LastSuccessfulImport)
}

// TestImportRootIsIdempotentOnUnchangedSnapshot covers spec §8 at the
// orchestrator level: running the identical pipeline twice in a row
// must not bump any row's updated_at, not just the repository layer in
// isolation.
func TestImportRootIsIdempotentOnUnchangedSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	fetcher := newFakeFetcher()
	fetcher.responses["GetServerInfo"] = serverInfoJSON
	fetcher.responses["GetServiceBodies"] = serviceBodiesJSON()
	fetcher.responses["GetFormats"] = formatsJSON()
	fetcher.responses["GetSearchResults"] = meetingsJSON()

	o := newTestOrchestrator(fetcher, config.ImportConfig{})
	root := rootservers.RootServer{URL: "https://root-y.example.org", Name: "Root Y"}
	id, err := repo.RootServers().Upsert(ctx, root)
	require.NoError(t, err)
	root.ID = id

	require.NoError(t, o.ImportRoot(ctx, repo, root))

	bodiesBefore, err := repo.ServiceBodies().List(ctx, []int{id}, nil)
	require.NoError(t, err)
	before := map[int]string{}
	for _, b := range bodiesBefore {
		before[b.ID] = b.UpdatedAt.String()
	}

	require.NoError(t, o.ImportRoot(ctx, repo, root))

	bodiesAfter, err := repo.ServiceBodies().List(ctx, []int{id}, nil)
	require.NoError(t, err)
	require.Len(t, bodiesAfter, len(bodiesBefore))
	for _, b := range bodiesAfter {
		require.Equal(t, before[b.ID], b.UpdatedAt.String(), "re-importing the identical snapshot must not touch updated_at")
	}
}

// TestImportRootIgnoresConfiguredBodyIDs covers the IgnoredBodyIDs
// per-root filter (spec §6.4).
func TestImportRootIgnoresConfiguredBodyIDs(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	fetcher := newFakeFetcher()
	fetcher.responses["GetServerInfo"] = serverInfoJSON
	fetcher.responses["GetServiceBodies"] = serviceBodiesJSON()
	fetcher.responses["GetFormats"] = formatsJSON()
	fetcher.responses["GetSearchResults"] = `[]`

	rootURL := "https://root-z.example.org"
	o := newTestOrchestrator(fetcher, config.ImportConfig{
		IgnoredBodyIDs: map[string][]int{rootURL: {2}},
	})
	root := rootservers.RootServer{URL: rootURL, Name: "Root Z"}
	id, err := repo.RootServers().Upsert(ctx, root)
	require.NoError(t, err)
	root.ID = id

	require.NoError(t, o.ImportRoot(ctx, repo, root))

	bodies, err := repo.ServiceBodies().List(ctx, []int{id}, nil)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	require.Equal(t, "Region", bodies[0].Name)
}

// TestImportRootRecordsProblemForUnresolvedServiceBody covers the
// per-record failure-isolation path (spec §7 item 2): a meeting
// referencing a service body that doesn't exist records an import
// problem and does not abort the rest of the batch.
func TestImportRootRecordsProblemForUnresolvedServiceBody(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)

	fetcher := newFakeFetcher()
	fetcher.responses["GetServerInfo"] = serverInfoJSON
	fetcher.responses["GetServiceBodies"] = serviceBodiesJSON()
	fetcher.responses["GetFormats"] = formatsJSON()
	fetcher.responses["GetSearchResults"] = `[{
		"id":"101","service_body_bigint":"999","meeting_name":"Orphan Meeting",
		"weekday_tinyint":"4","start_time":"19:00:00","duration_time":"01:00"
	}]`

	o := newTestOrchestrator(fetcher, config.ImportConfig{})
	root := rootservers.RootServer{URL: "https://root-w.example.org", Name: "Root W"}
	id, err := repo.RootServers().Upsert(ctx, root)
	require.NoError(t, err)
	root.ID = id

	require.NoError(t, o.ImportRoot(ctx, repo, root))

	meetingCount, err := repo.Meetings().CountActive(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, meetingCount)

	problems, err := repo.ImportProblems().ListByRootServer(ctx, id)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	require.Contains(t, problems[0].Message, "Invalid service_body")
}
