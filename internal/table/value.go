package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the runtime type of a cell.
type Kind uint8

const (
	KindMissing Kind = iota
	KindText
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "missing"
	}
}

// Value is one cell. The zero Value is missing.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

func Missing() Value { return Value{} }

func Text(s string) Value { return Value{kind: KindText, s: s} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value; NaN is missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindFloat, f: f}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == KindMissing }

// String renders the value the way it is written to delimited output.
// Missing renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Number coerces the value to a float. Text is trimmed and parsed; anything
// that does not parse reports false.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindText:
		f, err := ParseDecimal(strings.TrimSpace(v.s))
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal compares raw values. Integers and floats compare numerically, text
// compares exactly, missing equals missing, text never equals a number.
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

// Key is a comparable identity for v consistent with Equal.
type Key struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

func (v Value) Key() Key {
	switch v.kind {
	case KindText:
		return Key{kind: KindText, s: v.s}
	case KindInt:
		return Key{kind: KindInt, i: v.i}
	case KindFloat:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return Key{kind: KindInt, i: int64(v.f)}
		}
		return Key{kind: KindFloat, f: v.f}
	default:
		return Key{}
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.s)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.f)
	default:
		return []byte("null"), nil
	}
}

// ParseDecimal parses s as a base-10 float. Hexadecimal mantissas, which
// strconv.ParseFloat otherwise accepts, are rejected.
func ParseDecimal(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, &strconv.NumError{Func: "ParseDecimal", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(s, 64)
}

// nullMarkers are the cell texts read as missing.
var nullMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNullMarker reports whether a raw cell is read as missing.
func IsNullMarker(s string) bool {
	_, ok := nullMarkers[s]
	return ok
}
