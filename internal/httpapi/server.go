package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelyaml/internal/manager"
	"modelyaml/internal/registry"
	"modelyaml/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.ModelSummary
	Get(id string) (types.ModelDefinition, error)
	Put(def types.ModelDefinition) (uint64, error)
	Delete(id string) (uint64, error)
	Resolve(ctx context.Context, req types.ResolveRequest) (*types.ResolvedModel, error)
	ResolveMany(ctx context.Context, reqs []types.ResolveRequest) []manager.BatchResult
	ValidateDocument(doc any) []types.Problem
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(LoggingMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Group(func(r chi.Router) {
		r.Use(inflightMiddleware)

		r.Get("/models", h.listModels)
		r.Put("/models", h.putModel)
		r.Get("/models/{org}/{name}", h.getModel)
		r.Delete("/models/{org}/{name}", h.deleteModel)
		r.Post("/resolve", h.resolve)
		r.Post("/resolve/batch", h.resolveBatch)
		r.Post("/validate", h.validate)
		r.Get("/status", h.status)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// listModels godoc
// @Summary      List model definitions
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.ListModels()})
}

// getModel godoc
// @Summary      Get a model definition
// @Tags         models
// @Produce      json
// @Param        org   path  string  true  "Organization"
// @Param        name  path  string  true  "Model name"
// @Success      200  {object}  types.ModelDefinition
// @Failure      404  {object}  types.ErrorResponse
// @Router       /models/{org}/{name} [get]
func (h *handlers) getModel(w http.ResponseWriter, r *http.Request) {
	def, err := h.svc.Get(modelID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// putModel godoc
// @Summary      Store a model definition
// @Description  Validates the definition against the stored ones and replaces any definition with the same id.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        definition  body  types.ModelDefinition  true  "Definition"
// @Success      200  {object}  types.PutModelResponse
// @Failure      400  {object}  types.ValidateResponse
// @Failure      415  {object}  types.ErrorResponse
// @Router       /models [put]
func (h *handlers) putModel(w http.ResponseWriter, r *http.Request) {
	var doc any
	if !decodeJSON(w, r, &doc) {
		return
	}
	def, err := registry.FromTree(doc)
	if err != nil {
		problems := h.svc.ValidateDocument(doc)
		if len(problems) == 0 {
			problems = []types.Problem{{Message: err.Error()}}
		}
		writeJSON(w, http.StatusBadRequest, types.ValidateResponse{Valid: false, Problems: problems})
		return
	}
	version, err := h.svc.Put(def)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PutModelResponse{Model: def.Model, Version: version})
}

// deleteModel godoc
// @Summary      Delete a model definition
// @Tags         models
// @Produce      json
// @Param        org   path  string  true  "Organization"
// @Param        name  path  string  true  "Model name"
// @Success      200  {object}  types.PutModelResponse
// @Failure      404  {object}  types.ErrorResponse
// @Router       /models/{org}/{name} [delete]
func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	id := modelID(r)
	version, err := h.svc.Delete(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PutModelResponse{Model: id, Version: version})
}

// resolve godoc
// @Summary      Resolve a model for an environment
// @Tags         resolve
// @Accept       json
// @Produce      json
// @Param        request  body  types.ResolveRequest  true  "Resolve request"
// @Success      200  {object}  types.ResolvedModel
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      422  {object}  types.ErrorResponse
// @Router       /resolve [post]
func (h *handlers) resolve(w http.ResponseWriter, r *http.Request) {
	var req types.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	rm, err := h.svc.Resolve(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) && (r.Context().Err() != nil || serverBaseCtx.Err() != nil) {
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// resolveBatch godoc
// @Summary      Resolve several models at once
// @Description  Each item carries either a result or an error; items fail independently.
// @Tags         resolve
// @Accept       json
// @Produce      json
// @Param        request  body  types.BatchResolveRequest  true  "Batch request"
// @Success      200  {object}  types.BatchResolveResponse
// @Failure      400  {object}  types.ErrorResponse
// @Router       /resolve/batch [post]
func (h *handlers) resolveBatch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Requests) == 0 {
		writeJSONError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	if len(req.Requests) > maxBatchSize {
		IncrementRejected("batch_size")
		writeJSONError(w, http.StatusBadRequest, "too many requests in batch")
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	results := h.svc.ResolveMany(ctx, req.Requests)
	out := types.BatchResolveResponse{Results: make([]types.BatchResolveItem, len(results))}
	for i, res := range results {
		if res.Err != nil {
			_, body := errorResponse(res.Err)
			out.Results[i].Error = &body
			continue
		}
		out.Results[i].Result = res.Model
	}
	writeJSON(w, http.StatusOK, out)
}

// validate godoc
// @Summary      Validate a model definition
// @Description  Checks a definition against the schema and the stored definitions without storing it.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body  types.ValidateRequest  true  "Definition to validate"
// @Success      200  {object}  types.ValidateResponse
// @Failure      400  {object}  types.ErrorResponse
// @Router       /validate [post]
func (h *handlers) validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Definition any `json:"definition"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Definition == nil {
		writeJSONError(w, http.StatusBadRequest, "definition is required")
		return
	}
	problems := h.svc.ValidateDocument(req.Definition)
	if problems == nil {
		problems = []types.Problem{}
	}
	writeJSON(w, http.StatusOK, types.ValidateResponse{Valid: len(problems) == 0, Problems: problems})
}

// status godoc
// @Summary      Service status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func modelID(r *http.Request) string {
	return chi.URLParam(r, "org") + "/" + chi.URLParam(r, "name")
}

// decodeJSON enforces the JSON content type and the body limit and decodes
// the body into v. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		IncrementRejected("content_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			IncrementRejected("body_size")
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		IncrementRejected("invalid_json")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
