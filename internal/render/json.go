package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bmlt-enabled/tomato/internal/query"
)

// RenderJSON writes records as a JSON array of objects, keys in the
// field map's declared order (spec §4.7). Values are written as JSON
// strings across the board: every field map value renders through
// Value.Render(), which already normalizes bools/decimals/durations/
// lists to the same string forms the upstream protocol itself uses, so
// there's no separate numeric-vs-string branch to get wrong.
func RenderJSON(w io.Writer, records *query.RecordIter, names []string, _ string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("["); err != nil {
		return err
	}
	i := 0
	for {
		rec, ok, err := records.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if i > 0 {
			if _, err := bw.WriteString(","); err != nil {
				return err
			}
		}
		if err := writeJSONObject(bw, rec, names); err != nil {
			return err
		}
		i++
	}
	if _, err := bw.WriteString("]"); err != nil {
		return err
	}
	return bw.Flush()
}

func writeJSONObject(w *bufio.Writer, rec query.Record, names []string) error {
	if _, err := w.WriteString("{"); err != nil {
		return err
	}
	for i, name := range names {
		if i > 0 {
			if _, err := w.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:%s", jsonString(name), jsonString(valueOrEmpty(rec.Row, name))); err != nil {
			return err
		}
	}
	_, err := w.WriteString("}")
	return err
}

// jsonString escapes s as a JSON string literal without pulling in
// encoding/json's reflection-based Marshal for what's always a plain
// string value here.
func jsonString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			if r < 0x20 {
				out = append(out, []byte(fmt.Sprintf("\\u%04x", r))...)
				continue
			}
			out = append(out, []byte(string(r))...)
		}
	}
	out = append(out, '"')
	return string(out)
}

// RenderJSONP wraps the JSON array in a callback invocation (spec
// §4.7: "wrap the JSON stream in callback( … )").
func RenderJSONP(w io.Writer, records *query.RecordIter, names []string, callback string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s(", callback); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := RenderJSON(w, records, names, ""); err != nil {
		return err
	}
	bw = bufio.NewWriter(w)
	if _, err := bw.WriteString(");"); err != nil {
		return err
	}
	return bw.Flush()
}
