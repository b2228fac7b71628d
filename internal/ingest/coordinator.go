package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shpitdev/seomerge/internal/table"
	"github.com/shpitdev/seomerge/pkg/pipeline/core"
	"github.com/shpitdev/seomerge/pkg/pipeline/worker"
)

// Workers is the parse pool size. It does not follow any configured
// concurrency setting.
const Workers = 3

// ErrNoUsableInput is returned when no source in a batch could be parsed.
var ErrNoUsableInput = errors.New("no usable input: every file failed to parse")

// MergeOrder selects the order parsed record sets are handed to the merger.
type MergeOrder string

const (
	// MergeOrderSubmission restores input order, so duplicate resolution is
	// reproducible between runs.
	MergeOrderSubmission MergeOrder = "submission"
	// MergeOrderCompletion keeps the order in which parses finished.
	MergeOrderCompletion MergeOrder = "completion"
)

// ParseMergeOrder maps configuration text onto a MergeOrder. Empty means
// submission order.
func ParseMergeOrder(raw string) (MergeOrder, error) {
	switch MergeOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MergeOrderSubmission:
		return MergeOrderSubmission, nil
	case MergeOrderCompletion:
		return MergeOrderCompletion, nil
	default:
		return "", fmt.Errorf("unknown merge order %q (want submission or completion)", raw)
	}
}

// Batch is the outcome of ingesting a list of sources.
type Batch struct {
	Sets     []*table.RecordSet
	Failures []*ParseError
}

// Rows is the total row count across Sets.
func (b *Batch) Rows() int {
	n := 0
	for _, rs := range b.Sets {
		n += rs.Len()
	}
	return n
}

// Coordinator runs the reader over a batch of sources.
type Coordinator struct {
	Logger *slog.Logger
	Order  MergeOrder
}

// Ingest parses every source exactly once. A single source is parsed on the
// calling goroutine; larger batches use a pool of Workers goroutines. Sources
// that fail are logged and left out. ErrNoUsableInput is returned when nothing
// parsed.
func (c *Coordinator) Ingest(ctx context.Context, sources []core.Source) (*Batch, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(sources) == 0 {
		return nil, ErrNoUsableInput
	}

	batch := &Batch{}
	record := func(name string, rs *table.RecordSet, err error) {
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				pe = &ParseError{Source: name, Err: err}
			}
			logger.WarnContext(ctx, "file excluded from batch",
				slog.String("source", name),
				slog.String("error", pe.Err.Error()))
			batch.Failures = append(batch.Failures, pe)
			return
		}
		logger.DebugContext(ctx, "file parsed",
			slog.String("source", name),
			slog.Int("rows", rs.Len()),
			slog.Int("columns", len(rs.Columns())))
		batch.Sets = append(batch.Sets, rs)
	}

	if len(sources) == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := Read(sources[0])
		record(sources[0].Name, rs, err)
	} else {
		parse := core.ProcessFunc[core.Source, *table.RecordSet](func(_ context.Context, src core.Source) (*table.RecordSet, error) {
			return Read(src)
		})
		onResult := func(res worker.Result[core.Source, *table.RecordSet]) error {
			if c.Order == MergeOrderCompletion {
				record(res.Input.Name, res.Output, res.Err)
			}
			return nil
		}
		results, err := worker.ProcessAllWithCallback(ctx, sources, parse.Process, onResult, worker.Options{
			Workers:       Workers,
			FailurePolicy: worker.FailurePolicyPartialOutput,
		})
		if err != nil {
			return nil, err
		}
		if c.Order != MergeOrderCompletion {
			for _, res := range results {
				record(res.Input.Name, res.Output, res.Err)
			}
		}
	}

	if len(batch.Sets) == 0 {
		return nil, ErrNoUsableInput
	}
	return batch, nil
}
