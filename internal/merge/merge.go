// Package merge concatenates parsed record sets into one row-oriented dataset
// and removes duplicate report rows.
package merge

import (
	"fmt"

	"github.com/shpitdev/seomerge/internal/table"
)

// KeyColumns are the source columns that identify a report row.
var KeyColumns = [4]string{"Keyword", "URL", "Position", "Timestamp"}

// Dataset is the merged, row-oriented view over every parsed input. Columns
// are the union of the input columns in first-seen order; each row holds one
// value per column.
type Dataset struct {
	Columns []string
	Rows    [][]table.Value

	index map[string]int
}

// Merge concatenates sets in the given order and takes ownership of them: the
// caller's slice is cleared so no reference to a record set outlives the merge.
// A row from a set lacking a column holds a missing value in that column.
func Merge(sets []*table.RecordSet) *Dataset {
	d := &Dataset{index: make(map[string]int)}
	total := 0
	for _, rs := range sets {
		total += rs.Len()
		for _, name := range rs.ColumnNames() {
			if _, ok := d.index[name]; !ok {
				d.index[name] = len(d.Columns)
				d.Columns = append(d.Columns, name)
			}
		}
	}

	d.Rows = make([][]table.Value, 0, total)
	for i, rs := range sets {
		cols := rs.Columns()
		pos := make([]int, len(cols))
		for c, col := range cols {
			pos[c] = d.index[col.Name]
		}
		for r := 0; r < rs.Len(); r++ {
			row := make([]table.Value, len(d.Columns))
			for c, col := range cols {
				row[pos[c]] = col.At(r)
			}
			d.Rows = append(d.Rows, row)
		}
		sets[i] = nil
	}
	return d
}

// ColumnIndex returns the position of a column in each row.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Len is the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

type dedupKey [len(KeyColumns)]table.Key

// Dedup drops every row whose KeyColumns values equal those of an earlier row
// and returns how many rows were removed. Running it again removes nothing.
func Dedup(d *Dataset) (int, error) {
	var idx [len(KeyColumns)]int
	for i, name := range KeyColumns {
		c, ok := d.ColumnIndex(name)
		if !ok {
			return 0, fmt.Errorf("dedup: missing key column %q", name)
		}
		idx[i] = c
	}

	seen := make(map[dedupKey]struct{}, len(d.Rows))
	kept := d.Rows[:0]
	for _, row := range d.Rows {
		var k dedupKey
		for i, c := range idx {
			k[i] = row[c].Key()
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	removed := len(d.Rows) - len(kept)
	clear(d.Rows[len(kept):])
	d.Rows = kept
	return removed, nil
}
