// Package pipeline turns a batch of SEO keyword exports into one merged,
// deduplicated, filtered and normalized dataset.
//
// Stage order: ingest, merge, schema check, dedup, projection, position
// filter, traffic, timestamp, sort by traffic descending, brand
// classification. Only two failures abort a run: no parsable input
// (ingest.ErrNoUsableInput) and missing required columns
// (schema.ErrSchemaInvalid).
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shpitdev/seomerge/internal/brand"
	"github.com/shpitdev/seomerge/internal/ingest"
	"github.com/shpitdev/seomerge/internal/merge"
	"github.com/shpitdev/seomerge/internal/metrics"
	"github.com/shpitdev/seomerge/internal/normalize"
	"github.com/shpitdev/seomerge/internal/table"
	"github.com/shpitdev/seomerge/pkg/pipeline/core"
	"github.com/shpitdev/seomerge/pkg/pipeline/schema"
)

// DefaultMaxPosition is used when Options.MaxPosition is not set.
const DefaultMaxPosition = 11

const tracerName = "github.com/shpitdev/seomerge/internal/pipeline"

// Options configures one run.
type Options struct {
	// MaxPosition is the inclusive rank threshold. Callers validate the
	// [1,100] range; zero selects DefaultMaxPosition.
	MaxPosition int
	// BrandTerms enables classification when at least one non-blank term
	// remains after trimming.
	BrandTerms []string
	MergeOrder ingest.MergeOrder
}

// Stats counts rows and files through the run.
type Stats struct {
	FilesParsed       int `json:"files_parsed"`
	FilesFailed       int `json:"files_failed"`
	RowsMerged        int `json:"rows_merged"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	RowsFiltered      int `json:"rows_filtered"`
	RowsOut           int `json:"rows_out"`
}

// Result is a successful run.
type Result struct {
	Dataset  *Dataset
	Stats    Stats
	Failures []*ingest.ParseError
}

// Processor runs the pipeline. The zero value logs to slog.Default and
// records no metrics.
type Processor struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Process runs the pipeline with a zero Processor.
func Process(ctx context.Context, sources []core.Source, opts Options) (*Result, error) {
	return (&Processor{}).Process(ctx, sources, opts)
}

// Process ingests sources and returns the processed dataset. The streams are
// read but not closed.
func (p *Processor) Process(ctx context.Context, sources []core.Source, opts Options) (res *Result, err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "pipeline"))
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	maxPos := opts.MaxPosition
	if maxPos == 0 {
		maxPos = DefaultMaxPosition
	}

	ctx, span := tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.Int("pipeline.files", len(sources)),
		attribute.Int("pipeline.max_position", maxPos),
		attribute.Int("pipeline.brand_terms", len(opts.BrandTerms)),
	))
	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		p.Metrics.ObserveRun(outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			logger.ErrorContext(ctx, "pipeline run failed",
				slog.String("outcome", outcome),
				slog.String("error", err.Error()))
		} else {
			span.SetAttributes(attribute.Int("pipeline.rows_out", res.Stats.RowsOut))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	logger.InfoContext(ctx, "pipeline run start",
		slog.Int("files", len(sources)),
		slog.Int("max_position", maxPos),
		slog.String("merge_order", string(opts.MergeOrder)))

	res = &Result{}

	// Ingest.
	coord := ingest.Coordinator{Logger: logger, Order: opts.MergeOrder}
	batch, err := traced(ctx, tracer, "pipeline.ingest", func(ctx context.Context) (*ingest.Batch, error) {
		return coord.Ingest(ctx, sources)
	})
	if err != nil {
		if errors.Is(err, ingest.ErrNoUsableInput) {
			p.Metrics.ObserveFiles(0, len(sources))
		}
		return nil, err
	}
	res.Failures = batch.Failures
	res.Stats.FilesParsed = len(batch.Sets)
	res.Stats.FilesFailed = len(batch.Failures)
	p.Metrics.ObserveFiles(res.Stats.FilesParsed, res.Stats.FilesFailed)

	// Merge. The merged dataset owns the record sets from here on.
	merged := merge.Merge(batch.Sets)
	batch.Sets = nil
	res.Stats.RowsMerged = merged.Len()
	p.Metrics.ObserveRows("merged", merged.Len())
	logger.InfoContext(ctx, "files merged",
		slog.Int("files_parsed", res.Stats.FilesParsed),
		slog.Int("files_failed", res.Stats.FilesFailed),
		slog.Int("rows", merged.Len()),
		slog.Int("columns", len(merged.Columns)))

	if err := schema.KeywordReport.Validate(merged.Columns); err != nil {
		return nil, err
	}

	removed, err := merge.Dedup(merged)
	if err != nil {
		return nil, fmt.Errorf("deduplicate: %w", err)
	}
	res.Stats.DuplicatesRemoved = removed
	p.Metrics.ObserveDuplicates(removed)
	p.Metrics.ObserveRows("deduplicated", merged.Len())
	logger.InfoContext(ctx, "duplicates removed",
		slog.Int("removed", removed),
		slog.Int("rows", merged.Len()))

	ds := project(merged)

	_, fspan := tracer.Start(ctx, "pipeline.normalize")
	before := len(ds.Rows)
	ds.Rows = filterPosition(ds.Rows, maxPos)
	res.Stats.RowsFiltered = before - len(ds.Rows)
	normalizeTraffic(ds.Rows)
	normalizeTimestamps(ds.Rows)
	fspan.SetAttributes(attribute.Int("pipeline.rows_filtered", res.Stats.RowsFiltered))
	fspan.End()
	p.Metrics.ObserveRows("filtered", len(ds.Rows))
	logger.InfoContext(ctx, "rows normalized",
		slog.Int("filtered_out", res.Stats.RowsFiltered),
		slog.Int("rows", len(ds.Rows)))

	sortByTraffic(ds.Rows)

	if c := brand.New(opts.BrandTerms); c != nil {
		classify(ds, c)
		logger.InfoContext(ctx, "rows classified", slog.Int("terms", len(c.Terms())))
	}

	res.Dataset = ds
	res.Stats.RowsOut = len(ds.Rows)
	logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("rows", res.Stats.RowsOut),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}

func traced[T any](ctx context.Context, tracer trace.Tracer, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ingest.ErrNoUsableInput):
		return "no_input"
	case errors.Is(err, schema.ErrSchemaInvalid):
		return "schema_invalid"
	default:
		return "error"
	}
}

// project builds canonical rows from the merged dataset's contract columns
// and releases the merged rows.
func project(merged *merge.Dataset) *Dataset {
	fields := schema.KeywordReport.Project(merged.Columns)
	idx := make(map[string]int, len(fields))
	ds := &Dataset{}
	for _, f := range fields {
		i, _ := merged.ColumnIndex(f.Source)
		idx[f.Name] = i
		if f.Name == ColKeywordIntents {
			ds.HasIntents = true
		}
	}
	cell := func(row []table.Value, name string) table.Value {
		i, ok := idx[name]
		if !ok {
			return table.Missing()
		}
		return row[i]
	}

	ds.Rows = make([]Row, len(merged.Rows))
	for n, row := range merged.Rows {
		ds.Rows[n] = Row{
			Keyword:        cell(row, ColKeyword),
			SearchVolume:   cell(row, ColSearchVolume),
			KeywordIntents: cell(row, ColKeywordIntents),
			URL:            cell(row, ColURL),
			raw: rawCells{
				position:  cell(row, ColPosition),
				traffic:   cell(row, ColTraffic),
				timestamp: cell(row, ColTimestamp),
			},
		}
	}
	merged.Rows = nil
	return ds
}

// filterPosition keeps rows whose numeric position is at most max, in order.
func filterPosition(rows []Row, max int) []Row {
	kept := rows[:0]
	for _, r := range rows {
		pos, ok := normalize.WithinPosition(r.raw.position, max)
		if !ok {
			continue
		}
		r.Position = pos
		r.raw.position = table.Value{}
		kept = append(kept, r)
	}
	clear(rows[len(kept):])
	return kept
}

func normalizeTraffic(rows []Row) {
	for i := range rows {
		rows[i].Traffic = normalize.Traffic(rows[i].raw.traffic)
		rows[i].raw.traffic = table.Value{}
	}
}

func normalizeTimestamps(rows []Row) {
	for i := range rows {
		if ts, ok := normalize.Timestamp(rows[i].raw.timestamp); ok {
			rows[i].Timestamp = &ts
		} else {
			rows[i].Timestamp = nil
		}
		rows[i].raw.timestamp = table.Value{}
	}
}

// sortByTraffic orders rows by traffic descending; ties keep their order.
func sortByTraffic(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Compare(b.Traffic, a.Traffic)
	})
}

func classify(ds *Dataset, c *brand.Classifier) {
	for i := range ds.Rows {
		kw := ds.Rows[i].Keyword
		ds.Rows[i].Branded = !kw.IsMissing() && c.Branded(kw.String())
	}
	ds.Classified = true
}
