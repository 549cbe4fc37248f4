// Package httpapi mounts the argument-dispatch engine and task-grouping
// orchestrator onto the HTTP surface described in spec §6: GET|POST
// /whoami, ANY /pys/<app>/<func_path>, and the orchestrator's /orchestrate
// envelope entry. CORS preflight, authentication and response-format
// negotiation beyond Accept-header selection are external collaborators
// (spec §1) and are not implemented here.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DataBooster/pywebapi-go/dispatch"
	"github.com/DataBooster/pywebapi-go/format"
	"github.com/DataBooster/pywebapi-go/orchestrator"
)

// OverridesFunc lets an external authorization layer inject argument
// overrides (spec §4.2 "Override") for a given request, e.g. the
// authenticated principal. A nil OverridesFunc injects nothing.
type OverridesFunc func(*http.Request) map[string]any

// Server wires the path resolver, merger, scoped loader, invocation
// dispatcher, formatter registry and orchestrator runner into HTTP handlers.
type Server struct {
	Root         string
	Loader       *dispatch.ScopedLoader
	Formatters   *format.Registry
	Orchestrator *orchestrator.Runner
	Overrides    OverridesFunc
	Logger       *slog.Logger
}

// NewServer constructs a Server whose Logger is slog.Default().
func NewServer(root string, loader *dispatch.ScopedLoader, formatters *format.Registry, runner *orchestrator.Runner) *Server {
	return &Server{Root: root, Loader: loader, Formatters: formatters, Orchestrator: runner, Logger: slog.Default()}
}

// Routes returns the mounted HTTP surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /whoami", s.handleWhoami)
	mux.HandleFunc("POST /whoami", s.handleWhoami)
	mux.HandleFunc("/pys/{app}/{funcPath...}", s.handleDispatch)
	mux.HandleFunc("POST /orchestrate", s.handleOrchestrate)
	return mux
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	principal := "anonymous"
	if s.Overrides != nil {
		if p, ok := s.Overrides(r)["principal"]; ok {
			if ps, ok := p.(string); ok {
				principal = ps
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"principal": principal,
		"requestId": uuid.NewString(),
	})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	app := r.PathValue("app")
	funcPath := r.PathValue("funcPath")
	logger := s.Logger.With("app", app, "funcPath", funcPath)

	reqPath, err := dispatch.ResolvePath(s.Root, funcPath)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	var overrides map[string]any
	if s.Overrides != nil {
		overrides = s.Overrides(r)
	}

	form, err := dispatch.MergeArguments(body, r.URL.Query(), overrides)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	scope, err := s.Loader.Acquire(reqPath.Directory, reqPath.HandlerSet)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}
	defer scope.Release()

	result, err := dispatch.Invoke(r.Context(), scope.HandlerSet, reqPath.Procedure, form)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	s.writeResult(w, logger, r.Header.Get("Accept"), result)
}

// orchestrateEnvelope is the public HTTP entry's wire shape (spec §6:
// "wraps the tree in {\"rest\": <tree>}").
type orchestrateEnvelope struct {
	Rest json.RawMessage `json:"rest"`
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	logger := s.Logger
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	var env orchestrateEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Rest) == 0 {
		s.writeError(w, logger, orchestrateEnvelopeError())
		return
	}

	root, err := orchestrator.LoadTree(env.Rest)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	result, err := s.Orchestrator.Run(r.Context(), root)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}

	s.writeResult(w, logger, r.Header.Get("Accept"), result)
}

func (s *Server) writeResult(w http.ResponseWriter, logger *slog.Logger, accept string, result any) {
	formatter, mediaType, err := s.Formatters.Select(accept)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}
	out, err := formatter.Format(result, mediaType)
	if err != nil {
		s.writeError(w, logger, err)
		return
	}
	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
