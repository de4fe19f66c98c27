// Package fieldmap implements the declarative field-map abstraction
// (spec §4.5, §9 "Design Notes"): an ordered external-name -> accessor
// table that drives projection, sorting, filtering and rendering without
// per-format code.
package fieldmap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the small sum-type Value carries, replacing runtime
// reflection with an explicit tag (spec §9: "a table from field name to
// typed getter returning Value... avoids runtime type inspection").
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindInt
	KindDecimal
	KindBool
	KindDuration
	KindList
)

// Value is the monomorphic result of every accessor.
type Value struct {
	Kind     Kind
	Str      string
	Int      int64
	Decimal  float64
	Bool     bool
	DurH     int
	DurM     int
	List     []Value
}

func None() Value                 { return Value{Kind: KindNone} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Decimal(f float64) Value     { return Value{Kind: KindDecimal, Decimal: f} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Duration(h, m int) Value     { return Value{Kind: KindDuration, DurH: h, DurM: m} }
func List(vs []Value) Value       { return Value{Kind: KindList, List: vs} }

// IsNone reports whether the value represents an absent/null field.
func (v Value) IsNone() bool { return v.Kind == KindNone }

// String rendering follows spec §4.5's value-normalization table:
// bool -> "1"/"0"; list -> comma-joined distinct members; interval ->
// "H:MM:SS" (hour padded to 2 digits minimum); decimal -> trailing
// zeros stripped; none -> ""; else -> stringification.
func (v Value) Render() string {
	switch v.Kind {
	case KindNone:
		return ""
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindDecimal:
		return stripTrailingZeros(v.Decimal)
	case KindBool:
		if v.Bool {
			return "1"
		}
		return "0"
	case KindDuration:
		return fmt.Sprintf("%02d:%02d:00", v.DurH, v.DurM)
	case KindList:
		seen := make(map[string]bool)
		var parts []string
		for _, item := range v.List {
			s := item.Render()
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			parts = append(parts, s)
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

func stripTrailingZeros(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// Less provides the comparison used by the query engine's sort stage
// (§4.6): missing values sort lowest.
func Less(a, b Value) bool {
	if a.IsNone() && !b.IsNone() {
		return true
	}
	if !a.IsNone() && b.IsNone() {
		return false
	}
	if a.Kind != b.Kind {
		return a.Render() < b.Render()
	}
	switch a.Kind {
	case KindInt:
		return a.Int < b.Int
	case KindDecimal:
		return a.Decimal < b.Decimal
	case KindDuration:
		if a.DurH != b.DurH {
			return a.DurH < b.DurH
		}
		return a.DurM < b.DurM
	case KindBool:
		return !a.Bool && b.Bool
	default:
		return a.Render() < b.Render()
	}
}
