package pipeline

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/shpitdev/seomerge/internal/table"
)

// Canonical output column names.
const (
	ColKeyword        = "keyword"
	ColPosition       = "position"
	ColSearchVolume   = "search_volume"
	ColKeywordIntents = "keyword_intents"
	ColURL            = "url"
	ColTraffic        = "traffic"
	ColTimestamp      = "timestamp"
	ColBranded        = "branded"
)

// Row is one canonical output record.
//
// Keyword, SearchVolume, KeywordIntents and URL keep the value read from the
// input. Timestamp is nil when the raw value did not parse as a date.
type Row struct {
	Keyword        table.Value
	Position       float64
	SearchVolume   table.Value
	KeywordIntents table.Value
	URL            table.Value
	Traffic        int64
	Timestamp      *string
	Branded        bool

	raw rawCells
}

// rawCells hold the pre-normalization values until their stage has run.
type rawCells struct {
	position  table.Value
	traffic   table.Value
	timestamp table.Value
}

// Dataset is the processed output of one run.
type Dataset struct {
	Rows []Row

	// HasIntents is set when the input carried a Keyword Intents column.
	HasIntents bool
	// Classified is set when brand terms were supplied and every row carries
	// a branded flag.
	Classified bool
}

// Header returns the output column names in order. keyword_intents and
// branded are present only when the dataset carries them.
func (d *Dataset) Header() []string {
	h := make([]string, 0, 8)
	h = append(h, ColKeyword, ColPosition, ColSearchVolume)
	if d.HasIntents {
		h = append(h, ColKeywordIntents)
	}
	h = append(h, ColURL, ColTraffic, ColTimestamp)
	if d.Classified {
		h = append(h, ColBranded)
	}
	return h
}

// Len is the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Record renders row i as delimited-text cells in Header order. A null
// timestamp renders as the empty string.
func (d *Dataset) Record(i int) []string {
	r := d.Rows[i]
	rec := make([]string, 0, 8)
	rec = append(rec,
		r.Keyword.String(),
		strconv.FormatFloat(r.Position, 'f', -1, 64),
		r.SearchVolume.String(),
	)
	if d.HasIntents {
		rec = append(rec, r.KeywordIntents.String())
	}
	ts := ""
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	rec = append(rec, r.URL.String(), strconv.FormatInt(r.Traffic, 10), ts)
	if d.Classified {
		rec = append(rec, strconv.FormatBool(r.Branded))
	}
	return rec
}

// WriteCSV writes the dataset as CSV with the Header() ordering.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header()); err != nil {
		return err
	}
	for i := range d.Rows {
		if err := cw.Write(d.Record(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Preview returns the first k rows keyed by column name, ready for JSON
// encoding. k larger than the dataset returns every row.
func (d *Dataset) Preview(k int) []map[string]any {
	if k < 0 {
		k = 0
	}
	k = min(k, len(d.Rows))
	out := make([]map[string]any, 0, k)
	for _, r := range d.Rows[:k] {
		m := map[string]any{
			ColKeyword:      r.Keyword,
			ColPosition:     r.Position,
			ColSearchVolume: r.SearchVolume,
			ColURL:          r.URL,
			ColTraffic:      r.Traffic,
			ColTimestamp:    r.Timestamp,
		}
		if d.HasIntents {
			m[ColKeywordIntents] = r.KeywordIntents
		}
		if d.Classified {
			m[ColBranded] = r.Branded
		}
		out = append(out, m)
	}
	return out
}

// Summary is the aggregate view of a dataset.
type Summary struct {
	Rows         int          `json:"rows"`
	TotalTraffic int64        `json:"total_traffic"`
	UniqueURLs   int          `json:"unique_urls"`
	Branded      *BrandCounts `json:"branded,omitempty"`
}

// BrandCounts splits the rows by classification.
type BrandCounts struct {
	Branded    int `json:"branded"`
	NonBranded int `json:"non_branded"`
}

// Summary computes row count, traffic total and distinct URL count. Brand
// counts are included only for classified datasets.
func (d *Dataset) Summary() Summary {
	s := Summary{Rows: len(d.Rows)}
	urls := make(map[table.Key]struct{}, len(d.Rows))
	var counts BrandCounts
	for _, r := range d.Rows {
		s.TotalTraffic = addSaturating(s.TotalTraffic, r.Traffic)
		if !r.URL.IsMissing() {
			urls[r.URL.Key()] = struct{}{}
		}
		if r.Branded {
			counts.Branded++
		} else {
			counts.NonBranded++
		}
	}
	s.UniqueURLs = len(urls)
	if d.Classified {
		s.Branded = &counts
	}
	return s
}

// addSaturating adds two non-negative totals, clamping at math.MaxInt64.
func addSaturating(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
