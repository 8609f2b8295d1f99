package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/observability/metrics"
)

type stubRetriever struct {
	result *domain.ResultSet
	err    error
	gotQ   string
	gotLim int
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, limit int, _ domain.SearchFilter) (*domain.ResultSet, error) {
	s.gotQ = query
	s.gotLim = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubIngestor struct {
	accepted int
	err      error
}

func (s *stubIngestor) IngestUnits(context.Context, []domain.DocumentUnit) (int, error) {
	return s.accepted, s.err
}

type stubReader struct {
	units []domain.DocumentUnit
	err   error
	gotID string
}

func (s *stubReader) ListUnits(_ context.Context, documentID string) ([]domain.DocumentUnit, error) {
	s.gotID = documentID
	return s.units, s.err
}

func newTestHandler(retriever *stubRetriever, ingestor *stubIngestor, reader *stubReader) http.Handler {
	if retriever == nil {
		retriever = &stubRetriever{result: &domain.ResultSet{Results: []domain.Candidate{}}}
	}
	if ingestor == nil {
		ingestor = &stubIngestor{}
	}
	if reader == nil {
		reader = &stubReader{}
	}
	// Zero rate disables the limiter.
	return NewRouter(retriever, ingestor, reader, metrics.NewAPIMetrics("docqa-api-test"), 0, 0).Handler()
}

func TestRetrieveHappyPath(t *testing.T) {
	retriever := &stubRetriever{result: &domain.ResultSet{
		Results: []domain.Candidate{{UnitID: "u1", Title: "HCP检测", FusedScore: 0.8}},
		Stage:   domain.StageDelivered,
	}}
	handler := newTestHandler(retriever, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve",
		strings.NewReader(`{"query": "HCP限度", "limit": 5, "granularity": "section"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if retriever.gotQ != "HCP限度" || retriever.gotLim != 5 {
		t.Fatalf("retriever received (%q, %d)", retriever.gotQ, retriever.gotLim)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("response carries no request id")
	}

	var body domain.ResultSet
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].UnitID != "u1" {
		t.Fatalf("body = %+v", body)
	}
}

func TestRetrieveValidation(t *testing.T) {
	handler := newTestHandler(nil, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query": `},
		{"missing query", `{"limit": 5}`},
		{"blank query", `{"query": "   "}`},
		{"bad granularity", `{"query": "q", "granularity": "page"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRetrieveMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/retrieve", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query")), http.StatusBadRequest},
		{"not found", domain.WrapError(domain.ErrNotFound, "load index", errors.New("missing")), http.StatusNotFound},
		{"provider unavailable", domain.WrapError(domain.ErrProviderUnavailable, "vector search", errors.New("down")), http.StatusServiceUnavailable},
		{"temporary", domain.WrapError(domain.ErrTemporary, "embed", errors.New("timeout")), http.StatusServiceUnavailable},
		{"corrupt index", domain.WrapError(domain.ErrIndexCorrupt, "load index", errors.New("bad payload")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestHandler(&stubRetriever{err: tc.err}, nil, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query": "q"}`))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("error body = %s", rec.Body.String())
			}
		})
	}
}

func TestIngestUnitsAcceptsBatch(t *testing.T) {
	handler := newTestHandler(nil, &stubIngestor{accepted: 3}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/units",
		strings.NewReader(`{"units": [{"document_id": "doc-1", "content": "text", "granularity": "section"}]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["accepted"] != 3 {
		t.Fatalf("accepted = %d, want 3", body["accepted"])
	}
}

func TestIngestUnitsRejectsEmptyBatch(t *testing.T) {
	handler := newTestHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/units", strings.NewReader(`{"units": []}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListUnitsExtractsDocumentID(t *testing.T) {
	reader := &stubReader{units: []domain.DocumentUnit{{ID: "u1", DocumentID: "doc-1"}}}
	handler := newTestHandler(nil, nil, reader)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/units", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reader.gotID != "doc-1" {
		t.Fatalf("document id = %q, want doc-1", reader.gotID)
	}
}

func TestListUnitsUnknownPath(t *testing.T) {
	handler := newTestHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	handler := NewRouter(
		&stubRetriever{result: &domain.ResultSet{Results: []domain.Candidate{}}},
		&stubIngestor{}, &stubReader{},
		metrics.NewAPIMetrics("docqa-api-test"), 1, 1,
	).Handler()

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("burst of 5 requests against burst=1 was never limited")
	}
}
