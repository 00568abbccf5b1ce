package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"github.com/guillermoBallester/estuary/internal/core/service"
)

// Handler exposes lineage extraction over plain HTTP, mirroring the wire
// contract of the remote parser boundary: {"query": ...} in, a graph out,
// {"detail": ...} on failure.
type Handler struct {
	lineage *service.LineageService
	logger  *slog.Logger
}

func NewHandler(lineage *service.LineageService, logger *slog.Logger) *Handler {
	return &Handler{lineage: lineage, logger: logger}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/parse", h.parse)
	mux.HandleFunc("POST /api/parse/batch", h.parseBatch)
	mux.HandleFunc("GET /health", h.health)
}

type parseRequest struct {
	Query string `json:"query"`
}

type batchRequest struct {
	Queries []string `json:"queries"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a \"query\" field")
		return
	}

	ctx := service.WithToolName(r.Context(), "api_parse")
	graph, err := h.lineage.Parse(ctx, req.Query)
	if err != nil {
		h.writeParseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

func (h *Handler) parseBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a \"queries\" array")
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "queries must not be empty")
		return
	}

	ctx := service.WithToolName(r.Context(), "api_parse_batch")
	graph, err := h.lineage.ParseAll(ctx, req.Queries)
	if err != nil {
		h.writeParseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeParseError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "parse request failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
