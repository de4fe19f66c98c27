package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/query"
)

// RenderCSV streams records as CSV with every field quoted (spec §4.7:
// "quoting QUOTE_ALL"). encoding/csv's Writer only quotes a field when
// its content forces it to (comma/quote/newline/leading space), and
// there's no QuoteAll mode to ask for, so this writes lines by hand:
// every field is wrapped in quotes with embedded quotes doubled, which
// is exactly what encoding/csv would produce per-field if it always
// quoted — just without the conditional.
func RenderCSV(w io.Writer, records *query.RecordIter, names []string, _ string) error {
	bw := bufio.NewWriter(w)

	if err := writeCSVLine(bw, names); err != nil {
		return err
	}
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

func writeCSVLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(forceQuote(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func forceQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
