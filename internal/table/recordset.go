package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRows is returned for input that has a header but no data rows.
var ErrNoRows = errors.New("no data rows")

// RecordSet is the parsed content of one input file in columnar form.
type RecordSet struct {
	Source  string
	columns []*Column
	index   map[string]int
	rows    int
}

// NewRecordSet builds a typed record set from a header and string rows.
//
// Rows shorter than the header are padded with missing cells; longer rows are
// rejected. Blank header names become "Unnamed: <i>" and repeated names get a
// ".<n>" suffix so every column stays addressable.
func NewRecordSet(source string, header []string, rows [][]string) (*RecordSet, error) {
	if len(header) == 0 {
		return nil, errors.New("empty header")
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	names := uniqueNames(header)
	cells := make([][]string, len(names))
	for c := range cells {
		cells[c] = make([]string, len(rows))
	}
	for r, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", r+2, len(row), len(names))
		}
		for c := range names {
			if c < len(row) {
				cells[c][r] = row[c]
			}
		}
	}

	rs := &RecordSet{
		Source:  source,
		columns: make([]*Column, len(names)),
		index:   make(map[string]int, len(names)),
		rows:    len(rows),
	}
	for c, name := range names {
		rs.columns[c] = NewColumn(name, cells[c])
		rs.index[name] = c
		cells[c] = nil
	}
	return rs, nil
}

func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// Len is the number of rows.
func (rs *RecordSet) Len() int { return rs.rows }

func (rs *RecordSet) Columns() []*Column { return rs.columns }

func (rs *RecordSet) ColumnNames() []string {
	out := make([]string, len(rs.columns))
	for i, c := range rs.columns {
		out[i] = c.Name
	}
	return out
}

func (rs *RecordSet) Column(name string) (*Column, bool) {
	i, ok := rs.index[name]
	if !ok {
		return nil, false
	}
	return rs.columns[i], true
}
