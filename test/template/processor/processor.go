package processor

import (
	"context"
	"strings"
)

type Result struct {
	Input  string
	Output string
}

// Processor folds a raw keyword to lower case with single spaces.
type Processor struct{}

func (Processor) Process(_ context.Context, in string) (Result, error) {
	return Result{Input: in, Output: strings.ToLower(strings.Join(strings.Fields(in), " "))}, nil
}
