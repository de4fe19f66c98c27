// Package geoindex keeps an in-process H3 cell index over meeting
// locations, used as a cheap prefilter ahead of the exact great-circle
// distance computation the query engine performs for radius and
// nearest-N searches (spec §4.3, §4.6).
package geoindex

import (
	"sync"

	h3 "github.com/uber/h3-go/v4"
)

const defaultResolution = 7

// Index buckets meeting ids by H3 cell at a fixed resolution.
type Index struct {
	mu         sync.RWMutex
	resolution int
	cellOf     map[int]h3.Cell   // meetingID -> cell
	idsOf      map[h3.Cell][]int // cell -> meetingIDs
}

func New() *Index {
	return &Index{
		resolution: defaultResolution,
		cellOf:     make(map[int]h3.Cell),
		idsOf:      make(map[h3.Cell][]int),
	}
}

// Insert adds or moves a meeting to the cell containing (lat, lon).
func (idx *Index) Insert(meetingID int, lat, lon float64) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), idx.resolution)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if old, ok := idx.cellOf[meetingID]; ok {
		idx.removeFromBucket(old, meetingID)
	}
	idx.cellOf[meetingID] = cell
	idx.idsOf[cell] = append(idx.idsOf[cell], meetingID)
}

// ReplaceWith atomically swaps idx's contents with other's, used when
// rebuilding the whole index from a fresh store snapshot rather than
// maintaining it incrementally.
func (idx *Index) ReplaceWith(other *Index) {
	other.mu.RLock()
	cellOf := other.cellOf
	idsOf := other.idsOf
	other.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.cellOf = cellOf
	idx.idsOf = idsOf
}

// Remove drops a meeting from the index.
func (idx *Index) Remove(meetingID int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if cell, ok := idx.cellOf[meetingID]; ok {
		idx.removeFromBucket(cell, meetingID)
		delete(idx.cellOf, meetingID)
	}
}

func (idx *Index) removeFromBucket(cell h3.Cell, meetingID int) {
	ids := idx.idsOf[cell]
	for i, id := range ids {
		if id == meetingID {
			idx.idsOf[cell] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(idx.idsOf[cell]) == 0 {
		delete(idx.idsOf, cell)
	}
}

// CandidatesWithin returns the meeting ids in cells that could plausibly
// contain a point within radiusKM of (lat, lon). This is a prefilter
// only: callers must still compute exact great-circle distance and
// discard false positives.
func (idx *Index) CandidatesWithin(lat, lon, radiusKM float64) []int {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), idx.resolution)
	k := ringSizeFor(radiusKM, idx.resolution)

	cells, err := origin.GridDisk(k)
	if err != nil {
		// Fall back to the origin cell alone if the disk can't be
		// computed (e.g. pentagon distortion at very large k).
		cells = []h3.Cell{origin}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []int
	for _, c := range cells {
		out = append(out, idx.idsOf[c]...)
	}
	return out
}

// NearestCells grows the search ring outward until it has collected at
// least n candidate ids, or the ring has grown unreasonably large.
func (idx *Index) NearestCells(lat, lon float64, n int) []int {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), idx.resolution)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for k := 1; k <= 50; k++ {
		cells, err := origin.GridDisk(k)
		if err != nil {
			continue
		}
		var out []int
		for _, c := range cells {
			out = append(out, idx.idsOf[c]...)
		}
		if len(out) >= n {
			return out
		}
	}
	// Ring grew past the bound; return everything indexed as a last
	// resort so the caller's exact distance pass still has candidates.
	var all []int
	for _, ids := range idx.idsOf {
		all = append(all, ids...)
	}
	return all
}

// ringSizeFor picks a k-ring size that comfortably covers radiusKM at
// the index's resolution. H3 resolution 7 cells are ~1.22km edge length
// on average; we over-provision by one ring to absorb cell-shape
// irregularity near the query point.
func ringSizeFor(radiusKM float64, resolution int) int {
	edgeKM := averageEdgeLengthKM(resolution)
	if edgeKM <= 0 {
		return 2
	}
	k := int(radiusKM/edgeKM) + 2
	if k < 1 {
		k = 1
	}
	return k
}

func averageEdgeLengthKM(resolution int) float64 {
	km, err := h3.AverageEdgeLength(resolution, h3.Km)
	if err != nil {
		return 1.22
	}
	return km
}
