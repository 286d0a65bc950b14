package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/actgraph"
	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/internal/presentation/graph"
	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/document"
)

// maxDocument bounds the size of a posted graph document.
const maxDocument = 1 << 20

// Server exposes the compiler over HTTP. It never builds or loads plugins.
type Server struct {
	Compiler *actgraph.Compiler
	Logger   *slog.Logger
}

// NewHandler creates a new HTTP handler for the compiler. When gatherer is not
// nil its metrics are served on /metrics.
func NewHandler(c *actgraph.Compiler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{Compiler: c, Logger: logger}
	r := chi.NewRouter()

	r.Get("/health", s.Health)
	r.Get("/info", s.Info)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/nodes", s.Nodes)
		r.Post("/compile", s.Compile)
		r.Post("/graph", s.Graph)
		r.Post("/interpret", s.Interpret)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "actgraph-http",
		"version": strings.TrimSpace(actgraph.Version),
	})
}

// NodeKind is the JSON form of a node library entry.
type NodeKind struct {
	Kind    string   `json:"kind"`
	Doc     string   `json:"doc,omitempty"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// Nodes handles GET /v1/nodes.
func (s *Server) Nodes(w http.ResponseWriter, r *http.Request) {
	reg := s.Compiler.Registry()
	kinds := make([]NodeKind, 0)
	for _, name := range reg.Names() {
		d, err := reg.Describe(name)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		kinds = append(kinds, NodeKind{Kind: d.Kind, Doc: d.Doc, Inputs: nonNil(d.Inputs), Outputs: nonNil(d.Outputs)})
	}
	s.writeJSON(w, http.StatusOK, kinds)
}

// Compile handles POST /v1/compile. The response is Go source.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	prog, ok := s.program(w, r)
	if !ok {
		return
	}
	module, _ := strconv.ParseBool(r.URL.Query().Get("module"))
	unit, err := s.Compiler.Compile(prog, codegen.Options{Module: module})
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeText(w, "text/x-go; charset=utf-8", unit.Source)
}

// Graph handles POST /v1/graph. The response is a Mermaid diagram, with loop
// bodies highlighted when the graph compiles.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	prog, ok := s.program(w, r)
	if !ok {
		return
	}
	var overlay *graph.Overlay
	if unit, err := s.Compiler.Compile(prog, codegen.Options{}); err == nil {
		overlay = &graph.Overlay{Procedures: unit.Procedures}
	}
	s.writeText(w, "text/plain; charset=utf-8", []byte(graph.GenerateMermaid(prog.Graph, prog.Table, overlay)))
}

// Interpret handles POST /v1/interpret. The response is the printed output.
func (s *Server) Interpret(w http.ResponseWriter, r *http.Request) {
	prog, ok := s.program(w, r)
	if !ok {
		return
	}
	var out bytes.Buffer
	if err := s.Compiler.Interpret(r.Context(), prog, &out); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeText(w, "text/plain; charset=utf-8", out.Bytes())
}

// program decodes and resolves the posted document. The format comes from the
// "format" query parameter and defaults to YAML.
func (s *Server) program(w http.ResponseWriter, r *http.Request) (*document.Program, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocument))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
		} else {
			s.writeError(w, http.StatusBadRequest, err)
		}
		return nil, false
	}

	format, err := document.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}

	doc, err := document.Parse(data, format, "request")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	prog, err := s.Compiler.Resolve(doc)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return nil, false
	}
	return prog, true
}

// -- Helpers --

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.Logger.Debug("request failed", "status", status, "err", err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeText(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(body); err != nil {
		s.Logger.Error("failed to write response", "err", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
