package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
)

// nawsDumpColumns is the header row this aggregator expects on the
// supplementary tabular dump (spec §4.4; distinct from the outbound
// GetNAWSDump field map in internal/fieldmap/maps.go, which is this
// system's own export format, not its input).
var nawsDumpColumns = []string{
	"bmlt_id", "committee_name", "world_id", "day", "time", "duration",
	"room", "closed", "wheelchr_access", "formats", "address", "city",
	"state", "zip", "unpublished", "deleted",
}

// parseNAWSDumpCSV decodes the supplementary tabular dump into rows,
// matching columns by header name so column order in the source file
// doesn't matter.
func parseNAWSDumpCSV(body []byte) ([]meetings.DumpRow, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dump header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	get := func(record []string, col string) string {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []meetings.DumpRow
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		rows = append(rows, meetings.DumpRow{
			BMLTID:        get(record, "bmlt_id"),
			CommitteeName: get(record, "committee_name"),
			WorldID:       get(record, "world_id"),
			Day:           get(record, "day"),
			Time:          get(record, "time"),
			Duration:      get(record, "duration"),
			Room:          get(record, "room"),
			Closed:        get(record, "closed"),
			WheelchairAcc: get(record, "wheelchr_access"),
			Formats:       get(record, "formats"),
			Address:       get(record, "address"),
			City:          get(record, "city"),
			State:         get(record, "state"),
			Zip:           get(record, "zip"),
			Unpublished:   get(record, "unpublished"),
			Deleted:       get(record, "deleted"),
		})
	}
	return rows, nil
}

// isUnpublishedOrDeleted gates which dump rows are even candidates for
// merging (spec §4.4: "rows... which are unpublished-or-deleted").
func isUnpublishedOrDeleted(row meetings.DumpRow) bool {
	return row.Unpublished == "1" || row.Deleted == "1"
}

// fetchNAWSDump retrieves and parses the supplementary dump for one
// service body (identified by its upstream source id).
func fetchNAWSDump(ctx context.Context, f Fetcher, rootURL string, sbSourceID int) ([]meetings.DumpRow, error) {
	body, err := f.Fetch(ctx, nawsDumpURL(rootURL, sbSourceID))
	if err != nil {
		return nil, err
	}
	return parseNAWSDumpCSV(body)
}
