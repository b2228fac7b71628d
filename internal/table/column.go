package table

import (
	"math"
	"strconv"
)

// categoryRatio is the distinct/rows ratio under which a text column is stored
// dictionary-encoded.
const categoryRatio = 0.5

type storage interface {
	len() int
	at(i int) Value
	name() string
}

type textStorage struct {
	vals  []string
	valid []bool
}

func (s *textStorage) len() int { return len(s.vals) }

func (s *textStorage) at(i int) Value {
	if !s.valid[i] {
		return Missing()
	}
	return Text(s.vals[i])
}

func (s *textStorage) name() string { return "text" }

// categoryStorage keeps each distinct string once; code -1 is missing.
type categoryStorage struct {
	dict  []string
	codes []int32
}

func (s *categoryStorage) len() int { return len(s.codes) }

func (s *categoryStorage) at(i int) Value {
	c := s.codes[i]
	if c < 0 {
		return Missing()
	}
	return Text(s.dict[c])
}

func (s *categoryStorage) name() string { return "category" }

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64
}

type intStorage[T integer] struct {
	vals  []T
	width string
}

func (s *intStorage[T]) len() int       { return len(s.vals) }
func (s *intStorage[T]) at(i int) Value { return Int(int64(s.vals[i])) }
func (s *intStorage[T]) name() string   { return s.width }

type floating interface {
	~float32 | ~float64
}

type floatStorage[T floating] struct {
	vals  []T
	width string
}

func (s *floatStorage[T]) len() int       { return len(s.vals) }
func (s *floatStorage[T]) at(i int) Value { return Float(float64(s.vals[i])) }
func (s *floatStorage[T]) name() string   { return s.width }

// Column is one named, typed column of a RecordSet.
type Column struct {
	Name string
	Kind Kind
	data storage
}

func (c *Column) Len() int { return c.data.len() }

// At returns the logical value of row i.
func (c *Column) At(i int) Value { return c.data.at(i) }

// Storage names the physical representation chosen for the column, e.g.
// "category", "int8" or "float32".
func (c *Column) Storage() string { return c.data.name() }

// NewColumn infers the column kind from raw cells and stores it in the
// narrowest representation that keeps every logical value.
//
// Integer columns need every cell to be a base-10 integer with none missing;
// float columns need every non-missing cell to parse as a float; anything else
// is text.
func NewColumn(name string, raw []string) *Column {
	if ints, ok := parseInts(raw); ok {
		return &Column{Name: name, Kind: KindInt, data: narrowInts(ints)}
	}
	if floats, ok := parseFloats(raw); ok {
		return &Column{Name: name, Kind: KindFloat, data: narrowFloats(floats)}
	}
	return &Column{Name: name, Kind: KindText, data: buildText(raw)}
}

func parseInts(raw []string) ([]int64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	out := make([]int64, len(raw))
	for i, s := range raw {
		if IsNullMarker(s) {
			return nil, false
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(raw []string) ([]float64, bool) {
	out := make([]float64, len(raw))
	seen := false
	for i, s := range raw {
		if IsNullMarker(s) {
			out[i] = math.NaN()
			continue
		}
		v, err := ParseDecimal(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}

func narrowInts(vals []int64) storage {
	lo, hi := int64(0), int64(0)
	for i, v := range vals {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	switch {
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		return &intStorage[int8]{vals: convert[int64, int8](vals), width: "int8"}
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return &intStorage[int16]{vals: convert[int64, int16](vals), width: "int16"}
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return &intStorage[int32]{vals: convert[int64, int32](vals), width: "int32"}
	default:
		return &intStorage[int64]{vals: vals, width: "int64"}
	}
}

func narrowFloats(vals []float64) storage {
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if float64(float32(v)) != v {
			return &floatStorage[float64]{vals: vals, width: "float64"}
		}
	}
	return &floatStorage[float32]{vals: convert[float64, float32](vals), width: "float32"}
}

func convert[From integer | floating, To integer | floating](in []From) []To {
	out := make([]To, len(in))
	for i, v := range in {
		out[i] = To(v)
	}
	return out
}

func buildText(raw []string) storage {
	index := make(map[string]int32)
	codes := make([]int32, len(raw))
	var dict []string
	for i, s := range raw {
		if IsNullMarker(s) {
			codes[i] = -1
			continue
		}
		c, ok := index[s]
		if !ok {
			c = int32(len(dict))
			index[s] = c
			dict = append(dict, s)
		}
		codes[i] = c
	}

	if len(raw) > 0 && float64(len(dict))/float64(len(raw)) < categoryRatio {
		return &categoryStorage{dict: dict, codes: codes}
	}

	ts := &textStorage{vals: make([]string, len(raw)), valid: make([]bool, len(raw))}
	for i, c := range codes {
		if c < 0 {
			continue
		}
		ts.vals[i] = dict[c]
		ts.valid[i] = true
	}
	return ts
}
