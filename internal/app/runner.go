package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shpitdev/seomerge/internal/config"
	"github.com/shpitdev/seomerge/internal/ingest"
	"github.com/shpitdev/seomerge/internal/logging"
	"github.com/shpitdev/seomerge/internal/metrics"
	"github.com/shpitdev/seomerge/internal/pipeline"
	"github.com/shpitdev/seomerge/pkg/pipeline/core"
	localio "github.com/shpitdev/seomerge/pkg/pipeline/io/local"
)

// ErrInvalidParams is matched by every ParamsError.
var ErrInvalidParams = errors.New("invalid parameters")

// ParamsError lists every rejected run parameter.
type ParamsError struct {
	Problems []string
}

func (e *ParamsError) Error() string {
	return "invalid parameters: " + strings.Join(e.Problems, "; ")
}

func (e *ParamsError) Is(target error) bool { return target == ErrInvalidParams }

// Params are the caller-supplied settings of one run, shared by the CLI and
// the HTTP surface. Zero MaxPosition and empty MergeOrder take the configured
// defaults.
type Params struct {
	Files       int    `validate:"min=1"`
	MaxPosition int    `validate:"min=1,max=100"`
	MergeOrder  string `validate:"oneof=submission completion"`
	BrandTerms  []string
}

// Run is one finished pipeline run.
type Run struct {
	ID     string
	Result *pipeline.Result
}

// Runner validates run parameters and executes the pipeline.
type Runner struct {
	Config  config.PipelineConfig
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// NewID generates run ids; nil uses random UUIDs.
	NewID func() string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Resolve fills defaults into p and checks it against the configured limits.
func (r *Runner) Resolve(p Params) (Params, error) {
	if p.MaxPosition == 0 {
		p.MaxPosition = r.Config.DefaultMaxPosition
	}
	if strings.TrimSpace(p.MergeOrder) == "" {
		p.MergeOrder = r.Config.MergeOrder
	}
	p.MergeOrder = strings.ToLower(strings.TrimSpace(p.MergeOrder))

	var problems []string
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return p, err
		}
		for _, fe := range verrs {
			problems = append(problems, paramProblem(fe))
		}
	}
	if r.Config.MaxFiles > 0 && p.Files > r.Config.MaxFiles {
		problems = append(problems, fmt.Sprintf("at most %d files per run (got %d)", r.Config.MaxFiles, p.Files))
	}
	if len(problems) > 0 {
		return p, &ParamsError{Problems: problems}
	}
	return p, nil
}

func paramProblem(fe validator.FieldError) string {
	switch fe.Field() {
	case "Files":
		return "at least one input file is required"
	case "MaxPosition":
		return fmt.Sprintf("max position must be between 1 and 100 (got %v)", fe.Value())
	case "MergeOrder":
		return fmt.Sprintf("merge order must be submission or completion (got %q)", fe.Value())
	default:
		return fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
	}
}

// Run resolves p and processes sources. Every log line of the run carries its
// id.
func (r *Runner) Run(ctx context.Context, sources []core.Source, p Params) (*Run, error) {
	p.Files = len(sources)
	p, err := r.Resolve(p)
	if err != nil {
		return nil, err
	}
	order, err := ingest.ParseMergeOrder(p.MergeOrder)
	if err != nil {
		return nil, err
	}

	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	run := &Run{ID: newID()}
	ctx = logging.WithRunID(ctx, run.ID)

	proc := &pipeline.Processor{Logger: r.Logger, Metrics: r.Metrics}
	res, err := proc.Process(ctx, sources, pipeline.Options{
		MaxPosition: p.MaxPosition,
		BrandTerms:  p.BrandTerms,
		MergeOrder:  order,
	})
	if err != nil {
		return nil, err
	}
	run.Result = res
	return run, nil
}

// RunLocal reads the input files, processes them and writes the dataset as
// CSV to outputPath. The output file is replaced only when the run succeeds.
func (r *Runner) RunLocal(ctx context.Context, inputPaths []string, outputPath string, allowedExtensions []string, p Params) (*Run, error) {
	p.Files = len(inputPaths)
	if _, err := r.Resolve(p); err != nil {
		return nil, err
	}

	in := &localio.Files{Paths: inputPaths, AllowedExtensions: allowedExtensions}
	sources, err := in.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = in.Close()
	}()

	run, err := r.Run(ctx, sources, p)
	if err != nil {
		return nil, err
	}
	if err := localio.WriteFile(outputPath, run.Result.Dataset.WriteCSV); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return run, nil
}
