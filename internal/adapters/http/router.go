package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
	"github.com/kirillkom/docqa-engine/internal/observability/metrics"
)

const serviceName = "docqa-api"

type Router struct {
	retriever ports.Retriever
	ingestor  ports.UnitIngestor
	reader    ports.UnitReader
	metrics   *metrics.APIMetrics
	limiter   *trafficLimiter
}

func NewRouter(
	retriever ports.Retriever,
	ingestor ports.UnitIngestor,
	reader ports.UnitReader,
	apiMetrics *metrics.APIMetrics,
	ratePerSecond float64,
	burst int,
) *Router {
	return &Router{
		retriever: retriever,
		ingestor:  ingestor,
		reader:    reader,
		metrics:   apiMetrics,
		limiter:   newTrafficLimiter(ratePerSecond, burst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/documents/units", rt.ingestUnits)
	mux.HandleFunc("/v1/documents/", rt.listUnits)

	handler := rt.limiter.middleware(mux)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Query       string `json:"query"`
	Limit       int    `json:"limit"`
	Category    string `json:"category"`
	DocumentID  string `json:"document_id"`
	Granularity string `json:"granularity"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}
	if req.Granularity != "" && !domain.Granularity(req.Granularity).Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("granularity must be section or fragment"))
		return
	}

	rt.metrics.StartRetrieve()
	start := time.Now()

	result, err := rt.retriever.Retrieve(r.Context(), req.Query, req.Limit, domain.SearchFilter{
		Category:    req.Category,
		DocumentID:  req.DocumentID,
		Granularity: domain.Granularity(req.Granularity),
	})
	if err != nil {
		rt.metrics.FinishRetrieve(serviceName, "error", time.Since(start), 0)
		writeError(w, err)
		return
	}

	outcome := "delivered"
	if result.Empty() {
		outcome = "empty"
	}
	rt.metrics.FinishRetrieve(serviceName, outcome, time.Since(start), len(result.Results))
	writeJSON(w, http.StatusOK, result)
}

type ingestUnitsRequest struct {
	Units []domain.DocumentUnit `json:"units"`
}

func (rt *Router) ingestUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req ingestUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if len(req.Units) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("units are required"))
		return
	}

	accepted, err := rt.ingestor.IngestUnits(r.Context(), req.Units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": accepted,
	})
}

func (rt *Router) listUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	documentID := strings.TrimSuffix(path, "/units")
	if documentID == "" || documentID == path {
		writeJSON(w, http.StatusNotFound, errorBody("unknown path"))
		return
	}

	units, err := rt.reader.ListUnits(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"units":       units,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
