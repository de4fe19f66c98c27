package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/query"
)

// XMLOptions carries the root element's optional namespace attributes
// (spec §4.7: "Optional xmlns + xsi:schemaLocation on the root,
// pointing to a named XSD served by the surrounding system").
type XMLOptions struct {
	RootElement   string // default "meetings"
	RowElement    string // default "row"
	Namespace     string
	SchemaLocation string
}

// RenderXML writes one element per record, splitting each field's
// external name on "." into nested child elements (spec §4.7). A plain
// encoding/xml struct can't model this since the element tree's shape
// is only known from the field map at runtime, so elements are written
// directly rather than through xml.Marshal.
func RenderXML(w io.Writer, records *query.RecordIter, names []string, _ string) error {
	return renderXML(w, records, names, XMLOptions{RootElement: "meetings", RowElement: "row"})
}

// RenderKML writes KML Placemarks, one per record, using the
// meeting_kml field map's pre-annotated name/address/description/
// coordinate fields (spec §4.7).
func RenderKML(w io.Writer, records *query.RecordIter, names []string, _ string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<kml xmlns=\"http://www.opengis.net/kml/2.2\"><Document>\n"); err != nil {
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
		name := valueOrEmpty(rec.Row, "name")
		address := valueOrEmpty(rec.Row, "address")
		description := valueOrEmpty(rec.Row, "description")
		lon := valueOrEmpty(rec.Row, "longitude")
		lat := valueOrEmpty(rec.Row, "latitude")
		if _, err := fmt.Fprintf(bw, "<Placemark><name>%s</name><address>%s</address><description>%s</description><Point><coordinates>%s,%s</coordinates></Point></Placemark>\n",
			xmlEscape(name), xmlEscape(address), xmlEscape(description), xmlEscape(lon), xmlEscape(lat)); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("</Document></kml>\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func renderXML(w io.Writer, records *query.RecordIter, names []string, opts XMLOptions) error {
	bw := bufio.NewWriter(w)

	rootAttrs := ""
	if opts.Namespace != "" {
		rootAttrs += fmt.Sprintf(` xmlns="%s"`, xmlEscape(opts.Namespace))
	}
	if opts.SchemaLocation != "" {
		rootAttrs += fmt.Sprintf(` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="%s"`, xmlEscape(opts.SchemaLocation))
	}
	if _, err := fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<%s%s>\n", opts.RootElement, rootAttrs); err != nil {
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
		if _, err := fmt.Fprintf(bw, `<%s sequence_index="%d">`, opts.RowElement, i); err != nil {
			return err
		}
		if err := writeNestedFields(bw, rec, names); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, "</%s>\n", opts.RowElement); err != nil {
			return err
		}
		i++
	}

	_, err := fmt.Fprintf(bw, "</%s>\n", opts.RootElement)
	if err != nil {
		return err
	}
	return bw.Flush()
}

// writeNestedFields emits one element per declared name, splitting the
// name on "." into a chain of nested elements (spec §4.7: "nested
// element names are produced by splitting the external name on .").
func writeNestedFields(w *bufio.Writer, rec query.Record, names []string) error {
	for _, name := range names {
		parts := strings.Split(name, ".")
		for _, p := range parts {
			if _, err := fmt.Fprintf(w, "<%s>", p); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(xmlEscape(valueOrEmpty(rec.Row, name))); err != nil {
			return err
		}
		for i := len(parts) - 1; i >= 0; i-- {
			if _, err := fmt.Fprintf(w, "</%s>", parts[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
