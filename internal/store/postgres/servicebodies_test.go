package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
)

func body(sourceID int, name string, parentSourceID *int) servicebodies.ServiceBody {
	return servicebodies.ServiceBody{
		SourceID: sourceID,
		ParentID: parentSourceID,
		Name:     name,
		Type:     servicebodies.TypeArea,
		URL:      "https://example.org/" + name,
	}
}

func intp(v int) *int { return &v }

func TestServiceBodyReplaceAllInsertsAndWiresParents(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-a.example.org")
	repo := &Repository{pool: pool}

	bodies := []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
	}

	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, bodies)
	require.NoError(t, err)
	require.Len(t, idBySourceID, 2)

	all, err := repo.ServiceBodies().List(ctx, []int{rootID}, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := make(map[int]servicebodies.ServiceBody, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}
	area := byID[idBySourceID[2]]
	require.NotNil(t, area.ParentID)
	require.Equal(t, idBySourceID[1], *area.ParentID)

	region := byID[idBySourceID[1]]
	require.Nil(t, region.ParentID)
}

// TestServiceBodyReplaceAllToleratesSelfAndMissingParents covers spec
// §8's edge case: a self-referencing or forward-missing parent degrades
// to top-level instead of blocking the import.
func TestServiceBodyReplaceAllToleratesSelfAndMissingParents(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-b.example.org")
	repo := &Repository{pool: pool}

	bodies := []servicebodies.ServiceBody{
		body(1, "SelfReferencing", intp(1)),
		body(2, "MissingParent", intp(999)),
	}

	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, bodies)
	require.NoError(t, err)

	all, err := repo.ServiceBodies().List(ctx, []int{rootID}, nil)
	require.NoError(t, err)
	byID := make(map[int]servicebodies.ServiceBody, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}

	require.Nil(t, byID[idBySourceID[1]].ParentID)
	require.Nil(t, byID[idBySourceID[2]].ParentID)
}

// TestServiceBodyReplaceAllDeletesOrphans covers spec §4.4's orphan
// deletion rule: a source_id absent from the current batch is removed,
// not merely left unreferenced.
func TestServiceBodyReplaceAllDeletesOrphans(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-c.example.org")
	repo := &Repository{pool: pool}

	_, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
	})
	require.NoError(t, err)

	_, err = repo.ServiceBodies().ReplaceAll(ctx, rootID, []servicebodies.ServiceBody{
		body(1, "Region", nil),
	})
	require.NoError(t, err)

	all, err := repo.ServiceBodies().List(ctx, []int{rootID}, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Region", all[0].Name)
}

// TestServiceBodyReplaceAllIsIdempotentOnUnchangedSnapshot covers spec
// §8's idempotence invariant directly against updated_at: importing the
// same batch twice in a row must not touch rows that didn't change,
// including their parent_id wiring pass.
func TestServiceBodyReplaceAllIsIdempotentOnUnchangedSnapshot(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-d.example.org")
	repo := &Repository{pool: pool}

	bodies := []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
	}

	_, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, bodies)
	require.NoError(t, err)

	before := updatedAtByID(t, ctx, pool, "service_bodies", rootID)
	require.Len(t, before, 2)

	time.Sleep(10 * time.Millisecond)
	_, err = repo.ServiceBodies().ReplaceAll(ctx, rootID, bodies)
	require.NoError(t, err)

	after := updatedAtByID(t, ctx, pool, "service_bodies", rootID)
	require.Equal(t, before, after, "re-importing an unchanged snapshot must not bump updated_at")
}

// TestServiceBodyReplaceAllWritesOnlyChangedRow covers the set_if_changed
// half of spec §8: when only one body's field actually changes, the
// unrelated row's updated_at must stay untouched.
func TestServiceBodyReplaceAllWritesOnlyChangedRow(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-e.example.org")
	repo := &Repository{pool: pool}

	bodies := []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
	}
	_, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, bodies)
	require.NoError(t, err)

	before := updatedAtByID(t, ctx, pool, "service_bodies", rootID)

	time.Sleep(10 * time.Millisecond)
	changed := []servicebodies.ServiceBody{
		bodies[0],
		{SourceID: 2, ParentID: intp(1), Name: "Area Renamed", Type: servicebodies.TypeArea, URL: bodies[1].URL},
	}
	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, changed)
	require.NoError(t, err)

	after := updatedAtByID(t, ctx, pool, "service_bodies", rootID)

	require.Equal(t, before[idBySourceID[1]], after[idBySourceID[1]], "unrelated row must not be touched")
	require.True(t, after[idBySourceID[2]].After(before[idBySourceID[2]]), "changed row must be touched")
}

// TestServiceBodyDescendantsToleratesCycle covers the cycle-guard
// promised by Descendants' bounded breadth-first walk: a parent_id loop
// must terminate instead of looping forever or erroring.
func TestServiceBodyDescendantsToleratesCycle(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-f.example.org")
	repo := &Repository{pool: pool}

	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
		body(3, "Group", intp(2)),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE service_bodies SET parent_id = $1 WHERE id = $2`, idBySourceID[3], idBySourceID[1])
	require.NoError(t, err)

	descendants, err := repo.ServiceBodies().Descendants(ctx, idBySourceID[1])
	require.NoError(t, err)
	require.ElementsMatch(t, []int{idBySourceID[2], idBySourceID[3]}, descendants)
}

// TestServiceBodyUpdateCountsRollsUpThroughAncestors covers the
// recursive num_meetings/num_groups rollup: a leaf body's meeting count
// must be reflected in every ancestor's total, not just its own row.
func TestServiceBodyUpdateCountsRollsUpThroughAncestors(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	rootID := insertRootServer(t, ctx, pool, "https://root-g.example.org")
	repo := &Repository{pool: pool}

	idBySourceID, err := repo.ServiceBodies().ReplaceAll(ctx, rootID, []servicebodies.ServiceBody{
		body(1, "Region", nil),
		body(2, "Area", intp(1)),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		INSERT INTO meetings (source_id, root_server_id, service_body_id, name, weekday, start_time, duration_minutes, updated_at)
		VALUES (1, $1, $2, 'Meeting One', 1, '19:00', 60, now())`, rootID, idBySourceID[2])
	require.NoError(t, err)

	require.NoError(t, repo.ServiceBodies().UpdateCounts(ctx, rootID))

	all, err := repo.ServiceBodies().List(ctx, []int{rootID}, nil)
	require.NoError(t, err)
	byID := make(map[int]servicebodies.ServiceBody, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}
	require.Equal(t, 1, byID[idBySourceID[2]].NumMeetings)
	require.Equal(t, 1, byID[idBySourceID[1]].NumMeetings, "ancestor must roll up the leaf's count")
}

func updatedAtByID(t *testing.T, ctx context.Context, pool *pgxpool.Pool, table string, rootServerID int) map[int]time.Time {
	t.Helper()
	rows, err := pool.Query(ctx, `SELECT id, updated_at FROM `+table+` WHERE root_server_id = $1`, rootServerID)
	require.NoError(t, err)
	defer rows.Close()

	out := map[int]time.Time{}
	for rows.Next() {
		var id int
		var updatedAt time.Time
		require.NoError(t, rows.Scan(&id, &updatedAt))
		out[id] = updatedAt
	}
	require.NoError(t, rows.Err())
	return out
}
