package normalize_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/seomerge/internal/normalize"
	"github.com/shpitdev/seomerge/internal/table"
)

func TestWithinPosition(t *testing.T) {
	tests := []struct {
		name string
		in   table.Value
		max  int
		want float64
		keep bool
	}{
		{name: "equal to threshold kept", in: table.Int(11), max: 11, want: 11, keep: true},
		{name: "one past threshold dropped", in: table.Int(12), max: 11},
		{name: "below threshold", in: table.Int(1), max: 11, want: 1, keep: true},
		{name: "float rank", in: table.Float(10.5), max: 11, want: 10.5, keep: true},
		{name: "numeric text", in: table.Text("3"), max: 11, want: 3, keep: true},
		{name: "non numeric text dropped", in: table.Text("top"), max: 100},
		{name: "missing dropped", in: table.Missing(), max: 100},
		{name: "hex text dropped", in: table.Text("0x1p3"), max: 11},
		{name: "negative infinity dropped", in: table.Text("-inf"), max: 11},
		{name: "infinite float dropped", in: table.Float(math.Inf(-1)), max: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := normalize.WithinPosition(tt.in, tt.max)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTraffic(t *testing.T) {
	tests := []struct {
		name string
		in   table.Value
		want int64
	}{
		{name: "currency and thousands", in: table.Text("$1,234"), want: 1234},
		{name: "thousands", in: table.Text("2,500"), want: 2500},
		{name: "not a number", in: table.Text("n/a"), want: 0},
		{name: "zero", in: table.Text("0"), want: 0},
		{name: "integer cell", in: table.Int(42), want: 42},
		{name: "float truncates", in: table.Float(12.9), want: 12},
		{name: "decimal text truncates", in: table.Text("$1,234.99"), want: 1234},
		{name: "exponent", in: table.Text("1.5e3"), want: 1500},
		{name: "missing", in: table.Missing(), want: 0},
		{name: "negative clamps", in: table.Text("-5"), want: 0},
		{name: "infinite", in: table.Float(math.Inf(1)), want: 0},
		{name: "padded", in: table.Text(" 7 "), want: 7},
		{name: "hex is not a number", in: table.Text("0x10"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Traffic(tt.in))
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   table.Value
		want string
		ok   bool
	}{
		{name: "iso date", in: table.Text("2023-05-15"), want: "2023-05-11", ok: true},
		{name: "month first slashes", in: table.Text("05/03/2024"), want: "2024-05-11", ok: true},
		{name: "unpadded slashes", in: table.Text("1/2/2023"), want: "2023-01-11", ok: true},
		{name: "iso date time", in: table.Text("2023-12-31 23:59:59"), want: "2023-12-11", ok: true},
		{name: "rfc3339", in: table.Text("2022-07-04T10:00:00Z"), want: "2022-07-11", ok: true},
		{name: "month name", in: table.Text("March 3, 2021"), want: "2021-03-11", ok: true},
		{name: "compact integer", in: table.Int(20230515), want: "2023-05-11", ok: true},
		{name: "not a date", in: table.Text("not-a-date"), ok: false},
		{name: "day first fallback", in: table.Text("31/12/2023"), want: "2023-12-11", ok: true},
		{name: "impossible date", in: table.Text("13/13/2023"), ok: false},
		{name: "missing", in: table.Missing(), ok: false},
		{name: "two digit year with time", in: table.Text("5/15/23 00:00"), want: "2023-05-11", ok: true},
		{name: "dashed two digit year", in: table.Text("05-15-23"), want: "2023-05-11", ok: true},
		{name: "numeric offset", in: table.Text("2023-05-15T10:00:00+0000"), want: "2023-05-11", ok: true},
		{name: "dotted day first", in: table.Text("15.05.2023"), want: "2023-05-11", ok: true},
		{name: "month name with time", in: table.Text("May 15, 2023 10:00 AM"), want: "2023-05-11", ok: true},
		{name: "month and year", in: table.Text("January 2024"), want: "2024-01-11", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize.Timestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
