package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaInvalid is matched by every error reporting that an input batch does
// not satisfy a DatasetContract.
var ErrSchemaInvalid = errors.New("schema invalid")

// Field maps one source column onto one canonical output column.
type Field struct {
	Source   string
	Name     string
	Required bool
}

// DatasetContract is the logical schema contract used by pipeline execution.
type DatasetContract struct {
	Fields []Field
}

// KeywordReport is the contract for merged SEO keyword exports. Field order is
// the canonical output column order.
var KeywordReport = DatasetContract{
	Fields: []Field{
		{Source: "Keyword", Name: "keyword", Required: true},
		{Source: "Position", Name: "position", Required: true},
		{Source: "Search Volume", Name: "search_volume", Required: true},
		{Source: "Keyword Intents", Name: "keyword_intents"},
		{Source: "URL", Name: "url", Required: true},
		{Source: "Traffic", Name: "traffic", Required: true},
		{Source: "Timestamp", Name: "timestamp", Required: true},
	},
}

// MissingColumnsError lists required source columns absent from a batch.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrSchemaInvalid
}

// Validate checks that every required source column is present in columns.
func (c DatasetContract) Validate(columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		if _, ok := present[f.Source]; !ok {
			missing = append(missing, f.Source)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

// Project returns the contract fields whose source column is present, in
// contract order. Source columns unknown to the contract are dropped.
func (c DatasetContract) Project(columns []string) []Field {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	out := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if _, ok := present[f.Source]; ok {
			out = append(out, f)
		}
	}
	return out
}
