package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/faultline/internal/logging"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/aretw0/faultline/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a FlagStore as the flag admin API.
type Server struct {
	store    ports.FlagStore
	logger   *slog.Logger
	onChange func(domain.FlagName)
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithChangeHook registers a callback invoked after a flag is toggled,
// typically to invalidate a local cache.
func WithChangeHook(fn func(domain.FlagName)) Option {
	return func(s *Server) {
		s.onChange = fn
	}
}

// WithMetrics serves the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler of the flag admin API.
func NewHandler(store ports.FlagStore, opts ...Option) (http.Handler, error) {
	s := &Server{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiDoc)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(validator.Middleware)
		r.Get("/flags", s.ListFlags)
		r.Get("/flags/{id}", s.GetFlag)
		r.Put("/flags/{id}", s.UpdateFlag)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>faultline API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// FlagUpdate is the body of PUT /v1/flags/{id}.
type FlagUpdate struct {
	Enabled *bool `json:"enabled"`
}

// ListFlags handles GET /v1/flags.
func (s *Server) ListFlags(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("List flags failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flags")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetFlag handles GET /v1/flags/{id}.
func (s *Server) GetFlag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flag, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

// UpdateFlag handles PUT /v1/flags/{id}. Only Enabled can be changed.
func (s *Server) UpdateFlag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body FlagUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("UpdateFlag: Invalid request body", "flag", id, "error", err)
		return
	}

	flag, err := flags.SetEnabled(r.Context(), s.store, id, *body.Enabled)
	if err != nil {
		s.storeError(w, id, err)
		return
	}

	s.logger.Info("Flag updated", "flag", id, "enabled", flag.Enabled)
	if s.onChange != nil {
		s.onChange(id)
	}
	writeJSON(w, http.StatusOK, flag)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) storeError(w http.ResponseWriter, id domain.FlagName, err error) {
	switch {
	case errors.Is(err, domain.ErrFlagNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrFlagNotModifiable):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("Flag store failed", "flag", id, "error", err)
		writeError(w, http.StatusInternalServerError, "flag store failure")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
