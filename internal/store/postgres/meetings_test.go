package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
)

func seedServiceBody(t *testing.T, ctx context.Context, repo *Repository, rootID int) int {
	t.Helper()
	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, []servicebodies.ServiceBody{
		body(1, "Area", nil),
	})
	require.NoError(t, err)
	return idBySourceID[1]
}

func baseMeeting(sourceID, rootID, serviceBodyID int) meetings.Meeting {
	return meetings.Meeting{
		SourceID:      sourceID,
		RootServerID:  rootID,
		ServiceBodyID: serviceBodyID,
		Name:          "Wednesday Night Group",
		Weekday:       4,
		StartTime:     "19:00",
		DurationHours: 1,
		Language:      "en",
		Published:     true,
		Source:        meetings.SourcePrimary,
	}
}

func meetingUpdatedAt(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id int) time.Time {
	t.Helper()
	var updatedAt time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT updated_at FROM meetings WHERE id = $1`, id).Scan(&updatedAt))
	return updatedAt
}

func TestMeetingUpsertInsertsThenUpdatesSamePass(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-a.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	m := baseMeeting(1, rootID, sbID)
	id, err := repo.Meetings().Upsert(ctx, m, meetings.Info{LocationText: "Fellowship Hall"})
	require.NoError(t, err)
	require.NotZero(t, id)

	m.Name = "Wednesday Night Group Renamed"
	id2, err := repo.Meetings().Upsert(ctx, m, meetings.Info{LocationText: "Fellowship Hall"})
	require.NoError(t, err)
	require.Equal(t, id, id2, "upsert must resolve to the same row by (root_server_id, source_id)")

	var name string
	require.NoError(t, pool.QueryRow(ctx, `SELECT name FROM meetings WHERE id = $1`, id).Scan(&name))
	require.Equal(t, "Wednesday Night Group Renamed", name)
}

// TestMeetingUpsertIsIdempotentOnUnchangedSnapshot covers spec §8
// directly: re-importing the same meeting and info must not bump
// updated_at at all.
func TestMeetingUpsertIsIdempotentOnUnchangedSnapshot(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-b.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	m := baseMeeting(1, rootID, sbID)
	info := meetings.Info{LocationText: "Fellowship Hall", LocationStreet: "123 Main St"}
	id, err := repo.Meetings().Upsert(ctx, m, info)
	require.NoError(t, err)

	before := meetingUpdatedAt(t, ctx, pool, id)

	time.Sleep(10 * time.Millisecond)
	_, err = repo.Meetings().Upsert(ctx, m, info)
	require.NoError(t, err)

	after := meetingUpdatedAt(t, ctx, pool, id)
	require.Equal(t, before, after, "re-importing an unchanged meeting must not bump updated_at")
}

// TestMeetingUpsertRecomputesPointOnlyWhenCoordinatesChange covers spec
// §8's "(m.point is null) iff (m.latitude is null or m.longitude is
// null)" invariant and the set_if_changed discipline around it.
func TestMeetingUpsertRecomputesPointOnlyWhenCoordinatesChange(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-c.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	m := baseMeeting(1, rootID, sbID)
	lat, lon := 40.7128, -74.0060
	m.Latitude = &lat
	m.Longitude = &lon
	id, err := repo.Meetings().Upsert(ctx, m, meetings.Info{})
	require.NoError(t, err)

	var pointWKT *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT ST_AsText(point::geometry) FROM meetings WHERE id = $1`, id).Scan(&pointWKT))
	require.NotNil(t, pointWKT)

	before := meetingUpdatedAt(t, ctx, pool, id)
	time.Sleep(10 * time.Millisecond)
	_, err = repo.Meetings().Upsert(ctx, m, meetings.Info{})
	require.NoError(t, err)
	require.Equal(t, before, meetingUpdatedAt(t, ctx, pool, id), "unchanged coordinates must not recompute point")

	time.Sleep(10 * time.Millisecond)
	newLat := 34.0522
	m.Latitude = &newLat
	_, err = repo.Meetings().Upsert(ctx, m, meetings.Info{})
	require.NoError(t, err)
	require.True(t, meetingUpdatedAt(t, ctx, pool, id).After(before), "changed latitude must recompute point and touch updated_at")

	var newPointWKT *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT ST_AsText(point::geometry) FROM meetings WHERE id = $1`, id).Scan(&newPointWKT))
	require.NotEqual(t, *pointWKT, *newPointWKT)
}

// TestMeetingUpsertReplaceFormatsNoopsWhenUnchanged covers the
// set_if_changed discipline applied to the many-to-many format links
// (spec §9): the same format set must not generate a delete+reinsert
// pass on a repeat import.
func TestMeetingUpsertReplaceFormatsNoopsWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-d.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	_, err := pool.Exec(ctx, `INSERT INTO formats (source_id, root_server_id, world_id, type) VALUES (1, $1, '', 'FT1'), (2, $1, '', 'FT1')`, rootID)
	require.NoError(t, err)
	var f1, f2 int
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM formats WHERE root_server_id = $1 AND source_id = 1`, rootID).Scan(&f1))
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM formats WHERE root_server_id = $1 AND source_id = 2`, rootID).Scan(&f2))

	m := baseMeeting(1, rootID, sbID)
	m.FormatIDs = []int{f1, f2}
	id, err := repo.Meetings().Upsert(ctx, m, meetings.Info{})
	require.NoError(t, err)

	// xmin changes whenever a link row is deleted and re-inserted, so
	// equal values before and after show the rows were left in place.
	var before string
	require.NoError(t, pool.QueryRow(ctx, `SELECT string_agg(xmin::text, ',' ORDER BY format_id) FROM meeting_formats WHERE meeting_id = $1`, id).Scan(&before))

	// Same set in a different order must not trigger a rewrite.
	m.FormatIDs = []int{f2, f1}
	_, err = repo.Meetings().Upsert(ctx, m, meetings.Info{})
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM meeting_formats WHERE meeting_id = $1`, id).Scan(&count))
	require.Equal(t, 2, count)

	var after string
	require.NoError(t, pool.QueryRow(ctx, `SELECT string_agg(xmin::text, ',' ORDER BY format_id) FROM meeting_formats WHERE meeting_id = $1`, id).Scan(&after))
	require.Equal(t, before, after, "same format set must not be deleted and re-inserted")
}

// TestMeetingMarkMissingDeletedSoftDeletesOrphans covers spec §4.4: a
// meeting whose source_id no longer appears upstream is flagged deleted
// rather than removed outright.
func TestMeetingMarkMissingDeletedSoftDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-e.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	id1, err := repo.Meetings().Upsert(ctx, baseMeeting(1, rootID, sbID), meetings.Info{})
	require.NoError(t, err)
	id2, err := repo.Meetings().Upsert(ctx, baseMeeting(2, rootID, sbID), meetings.Info{})
	require.NoError(t, err)

	require.NoError(t, repo.Meetings().MarkMissingDeleted(ctx, rootID, []int{1}, string(meetings.SourcePrimary)))

	var deleted1, deleted2 bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT deleted FROM meetings WHERE id = $1`, id1).Scan(&deleted1))
	require.NoError(t, pool.QueryRow(ctx, `SELECT deleted FROM meetings WHERE id = $1`, id2).Scan(&deleted2))
	require.False(t, deleted1)
	require.True(t, deleted2)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM meetings WHERE id = $1`, id2).Scan(&count))
	require.Equal(t, 1, count, "soft delete must not remove the row")
}

func TestMeetingCountActiveExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo := &Repository{pool: pool}
	rootID := insertRootServer(t, ctx, pool, "https://root-meetings-f.example.org")
	sbID := seedServiceBody(t, ctx, repo, rootID)

	_, err := repo.Meetings().Upsert(ctx, baseMeeting(1, rootID, sbID), meetings.Info{})
	require.NoError(t, err)
	_, err = repo.Meetings().Upsert(ctx, baseMeeting(2, rootID, sbID), meetings.Info{})
	require.NoError(t, err)
	require.NoError(t, repo.Meetings().MarkMissingDeleted(ctx, rootID, []int{1}, string(meetings.SourcePrimary)))

	n, err := repo.Meetings().CountActive(ctx, rootID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
