package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shpitdev/seomerge/internal/app"
	"github.com/shpitdev/seomerge/internal/brand"
	"github.com/shpitdev/seomerge/internal/config"
	"github.com/shpitdev/seomerge/internal/logging"
	"github.com/shpitdev/seomerge/internal/metrics"
	"github.com/shpitdev/seomerge/internal/server"
	"github.com/shpitdev/seomerge/internal/tracing"
	"github.com/shpitdev/seomerge/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
	case "local":
		code = runLocal(ctx, os.Args[2:], os.Stdout, os.Stderr)
	case "serve":
		code = runServe(ctx, os.Args[2:], os.Stderr)
	case "version":
		_, _ = fmt.Fprintln(os.Stdout, version.Current)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	stop()
	os.Exit(code)
}

// stringList collects a repeatable flag. Each occurrence is one value, taken
// verbatim, so paths may contain commas.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	if v == "" {
		return errors.New("empty value")
	}
	*l = append(*l, v)
	return nil
}

func runLocal(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var inputs stringList
	var outputPath string
	var configPath string
	var maxPosition int
	var branded string
	var mergeOrder string

	fs.Var(&inputs, "input", "Input CSV/XLSX file (repeat for each file)")
	fs.StringVar(&outputPath, "output", "processed_keywords.csv", "Output CSV file path")
	fs.StringVar(&configPath, "config", "", "YAML config file (env: SEOMERGE_CONFIG)")
	fs.IntVar(&maxPosition, "max-position", 0, "Keep rows ranked at or above this position, 1-100 (default from config, 11)")
	fs.StringVar(&branded, "branded", "", "Comma-separated brand terms; enables the branded column")
	fs.StringVar(&mergeOrder, "merge-order", "", "Duplicate resolution order: submission or completion (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(inputs) == 0 {
		_, _ = fmt.Fprintln(stderr, "local requires at least one --input")
		return 2
	}
	if explicitlySet(fs, "max-position") && maxPosition < 1 {
		_, _ = fmt.Fprintf(stderr, "--max-position must be between 1 and 100 (got %d)\n", maxPosition)
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return 2
	}
	logger := logging.New(stderr, cfg.Logging)
	shutdownTracing, err := tracing.Setup(cfg.Tracing, stderr, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "tracing error: %s\n", err)
		return 2
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	runner := &app.Runner{Config: cfg.Pipeline, Logger: logger}
	run, err := runner.RunLocal(ctx, inputs, outputPath, cfg.Server.AllowedExtensions, app.Params{
		MaxPosition: maxPosition,
		MergeOrder:  mergeOrder,
		BrandTerms:  brand.ParseTerms(branded),
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "local run failed: %s\n", err)
		if errors.Is(err, app.ErrInvalidParams) {
			return 2
		}
		return 1
	}

	printSummary(stdout, run, outputPath)
	return 0
}

func printSummary(w io.Writer, run *app.Run, outputPath string) {
	res := run.Result
	sum := res.Dataset.Summary()
	_, _ = fmt.Fprintf(w, "run %s\n", run.ID)
	_, _ = fmt.Fprintf(w, "files parsed: %d, failed: %d\n", res.Stats.FilesParsed, res.Stats.FilesFailed)
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(w, "  skipped %s: %s\n", f.Source, f.Err)
	}
	_, _ = fmt.Fprintf(w, "rows merged: %d, duplicates removed: %d, filtered by position: %d\n",
		res.Stats.RowsMerged, res.Stats.DuplicatesRemoved, res.Stats.RowsFiltered)
	_, _ = fmt.Fprintf(w, "rows written: %d, total traffic: %d, unique urls: %d\n",
		sum.Rows, sum.TotalTraffic, sum.UniqueURLs)
	if sum.Branded != nil {
		_, _ = fmt.Fprintf(w, "branded: %d, non-branded: %d\n", sum.Branded.Branded, sum.Branded.NonBranded)
	}
	_, _ = fmt.Fprintf(w, "output: %s\n", outputPath)
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	var addr string
	fs.StringVar(&configPath, "config", "", "YAML config file (env: SEOMERGE_CONFIG)")
	fs.StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return 2
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	logger := logging.New(stderr, cfg.Logging)
	shutdownTracing, err := tracing.Setup(cfg.Tracing, stderr, logger)
	if err != nil {
		logger.Error("tracing setup failed", slog.String("error", err.Error()))
		return 2
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		logger.Error("metrics registration failed", slog.String("error", err.Error()))
		return 1
	}

	runner := &app.Runner{Config: cfg.Pipeline, Logger: logger, Metrics: m}
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(*cfg, runner, reg, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("version", version.Current))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func explicitlySet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `seomerge: merge, deduplicate and normalize SEO keyword exports

Usage:
  seomerge <command> [flags]

Commands:
  local    Process local CSV/XLSX exports into one CSV
  serve    Run the HTTP upload API
  version  Print the version

Examples:
  seomerge local --input jan.csv --input feb.csv --output merged.csv --max-position 20 --branded "acme,acme shop"
  seomerge serve --addr :8080

Environment:
  SEOMERGE_CONFIG                        YAML config file
  SEOMERGE_PIPELINE_MAX_FILES            Files accepted per run (default 10)
  SEOMERGE_PIPELINE_DEFAULT_MAX_POSITION Position threshold when none is given (default 11)
  SEOMERGE_PIPELINE_MERGE_ORDER          submission or completion (default submission)
  SEOMERGE_SERVER_ADDR                   Listen address (default :8080)
  SEOMERGE_SERVER_MAX_UPLOAD_MB          Upload size cap (default 100)
  SEOMERGE_LOGGING_LEVEL                 debug, info, warn or error
  SEOMERGE_LOGGING_FORMAT                json or text
  SEOMERGE_TRACING_ENABLED               Export pipeline spans (default false)
  SEOMERGE_TRACING_EXPORTER              stdout or none

`)
}
