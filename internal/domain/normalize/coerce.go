// Package normalize holds the field-level coercion rules shared by every
// C2 normalizer (service bodies, formats, meetings, tabular-dump rows).
// Each coercion is a pure function that either returns a canonical value
// or a reason string describing why the raw field was rejected.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// Failure describes why one field of a raw upstream record could not be
// coerced into its canonical form.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string { return f.Reason }

func fail(format string, args ...interface{}) *Failure {
	return &Failure{Reason: fmt.Sprintf(format, args...)}
}

// Int parses a decimal integer; empty or non-numeric input fails with
// "Malformed <key>" per spec §4.2.
func Int(key, raw string) (int, *Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fail("Malformed %s", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fail("Malformed %s", key)
	}
	return v, nil
}

// Decimal parses a fixed-point decimal string (e.g. latitude/longitude).
func Decimal(key, raw string) (float64, *Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fail("Malformed %s", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fail("Malformed %s", key)
	}
	return v, nil
}

// RequiredString rejects a missing or empty required field.
func RequiredString(key, raw string) (string, *Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fail("Missing required key %s", key)
	}
	return raw, nil
}

// Time coerces the BMLT wall-clock time convention: if the input lacks a
// ':', it is interpreted as a count of minutes; minutes<60 format as
// "00:MM", otherwise split into H:M. Inputs already in "H:MM" form pass
// through after padding the hour to two digits.
func Time(key, raw string) (string, *Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fail("Missing required key %s", key)
	}
	if !strings.Contains(raw, ":") {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return "", fail("Malformed %s", key)
		}
		if minutes < 60 {
			return fmt.Sprintf("00:%02d", minutes), nil
		}
		h := minutes / 60
		m := minutes % 60
		return fmt.Sprintf("%02d:%02d", h, m), nil
	}
	parts := strings.SplitN(raw, ":", 2)
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fail("Malformed %s", key)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fail("Malformed %s", key)
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// Duration coerces a time-delta using the same interpretation path as
// Time, returning separate hour/minute components (spec §4.2).
func Duration(key, raw string) (hours, minutes int, f *Failure) {
	s, failure := Time(key, raw)
	if failure != nil {
		return 0, 0, failure
	}
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m, nil
}

// Weekday validates that the integer falls in 1..7 (1 = Sunday).
func Weekday(key, raw string) (int, *Failure) {
	v, f := Int(key, raw)
	if f != nil {
		return 0, f
	}
	if v < 1 || v > 7 {
		return 0, fail("Malformed %s", key)
	}
	return v, nil
}
