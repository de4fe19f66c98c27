package postgres

import (
	"context"

	"github.com/bmlt-enabled/tomato/internal/geoindex"
)

// RebuildGeoIndex reloads every active meeting's coordinates into idx,
// replacing its contents wholesale. Called after a successful import
// pass so radius/nearest-N queries see current data without per-write
// index maintenance (spec §4.9 expansion: "rebuilt after each
// successful import rather than maintained incrementally").
func (repo *Repository) RebuildGeoIndex(ctx context.Context, idx *geoindex.Index) error {
	points, err := repo.Meetings().AllActivePoints(ctx)
	if err != nil {
		return err
	}
	fresh := geoindex.New()
	for _, p := range points {
		fresh.Insert(p.MeetingID, p.Latitude, p.Longitude)
	}
	idx.ReplaceWith(fresh)
	return nil
}
