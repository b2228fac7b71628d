package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shpitdev/seomerge/internal/app"
	"github.com/shpitdev/seomerge/internal/ingest"
	"github.com/shpitdev/seomerge/pkg/pipeline/schema"
)

// Problem types returned by the API.
const (
	TypeBadRequest      = "/errors/bad-request"
	TypeValidation      = "/errors/validation"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeRateLimit       = "/errors/rate-limit"
	TypeNoUsableInput   = "/errors/pipeline/no-usable-input"
	TypeSchemaInvalid   = "/errors/pipeline/schema-invalid"
	TypeTimeout         = "/errors/timeout"
	TypeInternal        = "/errors/internal"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string

	Extensions map[string]any
}

func newProblem(status int, typ, title, detail string, r *http.Request) *Problem {
	return &Problem{Type: typ, Title: title, Status: status, Detail: detail, Instance: r.URL.Path}
}

// With adds an extension member.
func (p *Problem) With(key string, value any) *Problem {
	if p.Extensions == nil {
		p.Extensions = make(map[string]any)
	}
	p.Extensions[key] = value
	return p
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		data[k] = v
	}
	data["type"] = p.Type
	data["title"] = p.Title
	data["status"] = p.Status
	if p.Detail != "" {
		data["detail"] = p.Detail
	}
	if p.Instance != "" {
		data["instance"] = p.Instance
	}
	return json.Marshal(data)
}

// writeProblem renders p with the request id attached.
func writeProblem(w http.ResponseWriter, r *http.Request, p *Problem) {
	if id := middleware.GetReqID(r.Context()); id != "" {
		p.With("request_id", id)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// errorToProblem maps a run error onto a problem response.
func errorToProblem(err error, r *http.Request) *Problem {
	var perr *app.ParamsError
	var missing *schema.MissingColumnsError
	switch {
	case errors.As(err, &perr):
		return newProblem(http.StatusBadRequest, TypeValidation, "Invalid Parameters", err.Error(), r).
			With("errors", perr.Problems)
	case errors.Is(err, ingest.ErrNoUsableInput):
		return newProblem(http.StatusUnprocessableEntity, TypeNoUsableInput, "No Usable Input",
			"none of the uploaded files could be parsed", r)
	case errors.As(err, &missing):
		return newProblem(http.StatusUnprocessableEntity, TypeSchemaInvalid, "Schema Invalid", err.Error(), r).
			With("missing_columns", missing.Missing)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newProblem(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"the request was cancelled before processing finished", r)
	default:
		return newProblem(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
			"processing failed", r)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := errorToProblem(err, r)
	level := slog.LevelWarn
	if p.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", p.Status),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path))
	writeProblem(w, r, p)
}
