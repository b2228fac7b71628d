package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shpitdev/seomerge/internal/table"
	"github.com/shpitdev/seomerge/pkg/pipeline/core"
)

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = "\ufeff"
)

// ParseError reports one input that could not be turned into a record set.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read parses one source into a typed, storage-optimized record set.
//
// The body is rewound first. XLSX workbooks are recognised by their zip
// signature and read from the first sheet; everything else is read as CSV
// with a header row.
func Read(src core.Source) (*table.RecordSet, error) {
	rs, err := read(src)
	if err != nil {
		return nil, &ParseError{Source: src.Name, Err: err}
	}
	return rs, nil
}

func read(src core.Source) (*table.RecordSet, error) {
	if src.Body == nil {
		return nil, errors.New("nil body")
	}
	if _, err := src.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	br := bufio.NewReader(src.Body)
	magic, err := br.Peek(len(zipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read: %w", err)
	}

	var header []string
	var rows [][]string
	if bytes.Equal(magic, zipMagic) {
		header, rows, err = readXLSX(br)
	} else {
		if bom, _ := br.Peek(len(utf8BOM)); string(bom) == utf8BOM {
			_, _ = br.Discard(len(utf8BOM))
		}
		header, rows, err = readCSV(br)
	}
	if err != nil {
		return nil, err
	}
	return table.NewRecordSet(src.Name, header, rows)
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, rec)
	}
}

func readXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil, errors.New("empty file")
	}

	var rows [][]string
	for _, row := range all[1:] {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return all[0], rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
