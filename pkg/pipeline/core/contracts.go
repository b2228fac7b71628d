package core

import (
	"context"
	"io"
)

// Source is one named input stream handed to a pipeline run.
//
// Body must be re-readable from the start; readers seek to offset 0 before
// parsing. The pipeline never closes Body.
type Source struct {
	Name string
	Body io.ReadSeeker
}

// InputAdapter loads input records for pipeline processing.
type InputAdapter[In any] interface {
	Load(ctx context.Context) ([]In, error)
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

var _ Processor[Source, Source] = ProcessFunc[Source, Source](nil)

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}
