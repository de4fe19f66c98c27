package fieldmap

// Row is the generic bag of named values one rendered record exposes.
// Each domain package builds a Row for its own records (see e.g.
// internal/query's row builders); the field-map engine never knows
// about Meeting, ServiceBody, or Format directly, matching the
// "compile-time registry, not reflection" design note (spec §9).
type Row map[string]Value

// AccessorKind discriminates the tagged-variant accessor described in
// spec §9: "Path(string), PathWithFallback(primary, fallback_name), or
// Computed(fn)".
type AccessorKind int

const (
	AccessorPath AccessorKind = iota
	AccessorPathWithFallback
	AccessorComputed
)

// ComputedFunc derives a Value from the full row, for fields that are
// not a plain dereference (e.g. translated format key-strings, NAWS
// derived flags).
type ComputedFunc func(Row) Value

// Accessor resolves one field's raw value before qualifier and
// to-string rendering are applied.
type Accessor struct {
	Kind     AccessorKind
	Path     string
	Fallback string
	Compute  ComputedFunc
}

// Path builds a plain dotted-path accessor. Row keys already encode the
// flattened path (e.g. "meetinginfo.location_street"); to-many
// collection flattening is done by the row builder, since it knows the
// concrete relation.
func Path(path string) Accessor {
	return Accessor{Kind: AccessorPath, Path: path}
}

// PathWithFallback tries Path primary first; if it resolves to None, it
// falls back to the named annotation (spec §4.5: "used when a query
// pre-aggregated the field").
func PathWithFallback(primary, fallback string) Accessor {
	return Accessor{Kind: AccessorPathWithFallback, Path: primary, Fallback: fallback}
}

// Computed builds an accessor backed by an arbitrary function of the
// row.
func Computed(fn ComputedFunc) Accessor {
	return Accessor{Kind: AccessorComputed, Compute: fn}
}

// Resolve evaluates the accessor against a row.
func (a Accessor) Resolve(row Row) Value {
	switch a.Kind {
	case AccessorPath:
		return row[a.Path]
	case AccessorPathWithFallback:
		if v, ok := row[a.Path]; ok && !v.IsNone() {
			return v
		}
		return row[a.Fallback]
	case AccessorComputed:
		return a.Compute(row)
	default:
		return None()
	}
}

// Qualifier is a predicate over the row; when present and false the
// field is omitted from projection/rendering (spec §4.5).
type Qualifier func(Row) bool

// Field is one entry of a field map: an external name bound to an
// accessor and an optional qualifier.
type Field struct {
	External  string
	Accessor  Accessor
	Qualifier Qualifier
}

// Map is an ordered field map; external-name order is the canonical
// column order for tabular renderers (spec §4.5).
type Map struct {
	Name   string
	Fields []Field
}

// Names returns the declared external names in canonical order.
func (m Map) Names() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.External
	}
	return names
}

// Project evaluates every field whose qualifier (if any) passes,
// returning an ordered list of (external name, value) pairs. When
// `only` is non-empty, only those external names are evaluated, still
// in the map's declared order (spec §4.6 "projection").
func (m Map) Project(row Row, only map[string]bool) []NamedValue {
	out := make([]NamedValue, 0, len(m.Fields))
	for _, f := range m.Fields {
		if only != nil && !only[f.External] {
			continue
		}
		if f.Qualifier != nil && !f.Qualifier(row) {
			continue
		}
		out = append(out, NamedValue{Name: f.External, Value: f.Accessor.Resolve(row)})
	}
	return out
}

// NamedValue pairs a projected field's external name with its resolved
// value.
type NamedValue struct {
	Name  string
	Value Value
}
