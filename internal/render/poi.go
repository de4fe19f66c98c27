package render

import (
	"bufio"
	"io"

	"github.com/bmlt-enabled/tomato/internal/query"
)

// RenderPOI writes the lon,lat,name,desc point-of-interest CSV consumed
// by mapping tools (spec §4.7). Sort order (by weekday) is the query
// engine's responsibility; this only writes whatever order it's given.
// Unlike RenderCSV there's no header row: POI consumers expect bare
// data lines.
func RenderPOI(w io.Writer, records *query.RecordIter, names []string, _ string) error {
	bw := bufio.NewWriter(w)
	for {
		rec, ok, err := records.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := make([]string, len(names))
		for i, name := range names {
			row[i] = valueOrEmpty(rec.Row, name)
		}
		if err := writeCSVLine(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
