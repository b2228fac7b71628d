// Package normalize coerces raw report cells into their canonical types.
//
// Coercion never fails: unparsable positions are reported as absent,
// unparsable traffic becomes zero and unparsable timestamps become null.
package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/shpitdev/seomerge/internal/table"
)

// Position coerces a raw rank to a number. ok is false when the value is
// missing or does not parse; such rows never pass a threshold.
func Position(v table.Value) (pos float64, ok bool) {
	return v.Number()
}

// WithinPosition reports whether v is a finite numeric rank no greater than
// max.
func WithinPosition(v table.Value, max int) (float64, bool) {
	pos, ok := Position(v)
	if !ok || math.IsInf(pos, 0) || pos > float64(max) {
		return 0, false
	}
	return pos, true
}

var trafficCleaner = strings.NewReplacer(",", "", "$", "")

// Traffic strips thousands separators and dollar signs, parses the remainder
// and truncates it to an integer. Anything unparsable, non-finite or negative
// becomes 0.
func Traffic(v table.Value) int64 {
	var f float64
	switch v.Kind() {
	case table.KindInt, table.KindFloat:
		f, _ = v.Number()
	case table.KindText:
		parsed, err := table.ParseDecimal(strings.TrimSpace(trafficCleaner.Replace(v.String())))
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// monthYearLayouts cover month-only values, which dateparse does not read
// reliably.
var monthYearLayouts = []string{"January 2006", "Jan 2006"}

// ParseTimestamp parses a raw timestamp cell of any common date or date-time
// form. Ambiguous numeric dates are read month first and retried day first
// when the month would be out of range.
func ParseTimestamp(v table.Value) (time.Time, bool) {
	if v.IsMissing() {
		return time.Time{}, false
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range monthYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, monthFirst := range []bool{true, false} {
		if t, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(monthFirst)); err == nil && !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// Timestamp renders a raw timestamp as "YYYY-MM-11": year and month come from
// the parsed date, the day is always 11. ok is false when the value does not
// parse.
func Timestamp(v table.Value) (string, bool) {
	t, ok := ParseTimestamp(v)
	if !ok {
		return "", false
	}
	return t.Format("2006-01") + "-11", true
}
