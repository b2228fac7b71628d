package server

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/shpitdev/seomerge/internal/app"
	"github.com/shpitdev/seomerge/internal/brand"
	"github.com/shpitdev/seomerge/internal/pipeline"
	"github.com/shpitdev/seomerge/pkg/pipeline/core"
	localio "github.com/shpitdev/seomerge/pkg/pipeline/io/local"
)

// OutputFilename names the CSV attachment.
const OutputFilename = "processed_keywords.csv"

// multipartMemory is the part of an upload kept in memory; the rest spills to
// temporary files.
const multipartMemory = 32 << 20

type processResponse struct {
	RunID    string             `json:"run_id"`
	Columns  []string           `json:"columns"`
	Summary  pipeline.Summary   `json:"summary"`
	Stats    pipeline.Stats     `json:"stats"`
	Preview  []map[string]any   `json:"preview"`
	Failures []fileFailureEntry `json:"failures,omitempty"`
}

type fileFailureEntry struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadMB << 20
	tooLarge := newProblem(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
		fmt.Sprintf("upload exceeds %d MB", s.cfg.Server.MaxUploadMB), r)
	if r.ContentLength > limit {
		writeProblem(w, r, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeProblem(w, r, tooLarge)
			return
		}
		writeProblem(w, r, newProblem(http.StatusBadRequest, TypeBadRequest, "Bad Request",
			"expected a multipart/form-data upload: "+err.Error(), r))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	params, format, err := s.parseProcessForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	params.Files = len(headers)
	if _, err := s.runner.Resolve(params); err != nil {
		s.fail(w, r, err)
		return
	}
	for _, fh := range headers {
		if !localio.HasAllowedExtension(fh.Filename, s.cfg.Server.AllowedExtensions) {
			s.fail(w, r, &app.ParamsError{Problems: []string{
				fmt.Sprintf("file %q: only %s files are accepted", fh.Filename, strings.Join(s.cfg.Server.AllowedExtensions, ", ")),
			}})
			return
		}
	}

	sources, closeAll, err := openParts(headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer closeAll()

	run, err := s.runner.Run(r.Context(), sources, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ds := run.Result.Dataset

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", OutputFilename))
		w.Header().Set("X-Run-ID", run.ID)
		if err := ds.WriteCSV(w); err != nil {
			s.logger.ErrorContext(r.Context(), "csv response write failed", slog.String("error", err.Error()))
		}
		return
	}

	resp := processResponse{
		RunID:   run.ID,
		Columns: ds.Header(),
		Summary: ds.Summary(),
		Stats:   run.Result.Stats,
		Preview: ds.Preview(s.cfg.Pipeline.PreviewRows),
	}
	for _, f := range run.Result.Failures {
		resp.Failures = append(resp.Failures, fileFailureEntry{File: f.Source, Error: f.Err.Error()})
	}
	render.JSON(w, r, resp)
}

// parseProcessForm reads the non-file form fields.
func (s *Server) parseProcessForm(r *http.Request) (app.Params, string, error) {
	var params app.Params
	var problems []string

	if raw := strings.TrimSpace(r.FormValue("max_position")); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("max_position must be an integer (got %q)", raw))
		case n < 1:
			problems = append(problems, fmt.Sprintf("max position must be between 1 and 100 (got %d)", n))
		default:
			params.MaxPosition = n
		}
	}
	params.BrandTerms = brand.ParseTerms(r.FormValue("branded_terms"))
	params.MergeOrder = r.FormValue("merge_order")

	format := strings.ToLower(strings.TrimSpace(r.FormValue("format")))
	switch format {
	case "":
		format = "json"
	case "json", "csv":
	default:
		problems = append(problems, fmt.Sprintf("format must be json or csv (got %q)", format))
	}
	if len(problems) > 0 {
		return params, "", &app.ParamsError{Problems: problems}
	}
	return params, format, nil
}

func openParts(headers []*multipart.FileHeader) ([]core.Source, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	sources := make([]core.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		files = append(files, f)
		sources = append(sources, core.Source{Name: fh.Filename, Body: f})
	}
	return sources, closeAll, nil
}
