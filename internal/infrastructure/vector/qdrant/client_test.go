package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

func TestSearchDecodesResultsAndSendsFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/document_units/points/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"result": [
				{"score": 0.91, "payload": {"unit_id": "u1", "section_id": "s1", "title": "HCP检测", "text": "宿主细胞蛋白残留量测定", "page_number": 4}},
				{"score": 0.72, "payload": {"unit_id": "u2", "text": "second hit"}}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "document_units")
	hits, err := client.Search(context.Background(), []float32{0.1, 0.2}, 10, domain.SearchFilter{
		Granularity: domain.GranularityFragment,
		DocumentID:  "doc-1",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	first := hits[0]
	if first.UnitID != "u1" || first.SectionID != "s1" || first.RawScore != 0.91 {
		t.Fatalf("first hit = %+v", first)
	}
	if first.Source != domain.SourceVector {
		t.Fatalf("source = %q, want vector", first.Source)
	}
	if first.Metadata.PageNumber != 4 {
		t.Fatalf("page number = %d, want 4", first.Metadata.PageNumber)
	}
	if hits[1].Content != "second hit" {
		t.Fatalf("second hit content = %q", hits[1].Content)
	}

	if captured["limit"] != float64(10) {
		t.Fatalf("limit = %v, want 10", captured["limit"])
	}
	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("request carried no filter: %v", captured)
	}
	must, _ := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("must clauses = %d, want granularity and document_id", len(must))
	}
}

func TestSearchOmitsFilterWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			t.Errorf("empty filter must not be sent: %v", body)
		}
		_, _ = w.Write([]byte(`{"result": []}`))
	}))
	defer server.Close()

	client := New(server.URL, "document_units")
	hits, err := client.Search(context.Background(), []float32{0.1}, 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

func TestSearchReportsStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "document_units")
	if _, err := client.Search(context.Background(), []float32{0.1}, 5, domain.SearchFilter{}); err == nil {
		t.Fatalf("Search() = nil, want status error")
	}
}

func TestIndexUnitsCreatesCollectionThenUpserts(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/collections/docs" {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors, _ := body["vectors"].(map[string]any)
			if vectors["size"] != float64(3) || vectors["distance"] != "Cosine" {
				t.Errorf("collection config = %v", vectors)
			}
			return
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Errorf("upsert must wait for durability: %s", r.URL.RawQuery)
		}
		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Vector  []float32      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode upsert: %v", err)
		}
		if len(body.Points) != 2 {
			t.Errorf("points = %d, want 2", len(body.Points))
		}
		if body.Points[0].Payload["unit_id"] != "u1" || body.Points[0].Payload["granularity"] != "fragment" {
			t.Errorf("payload = %v", body.Points[0].Payload)
		}
		if body.Points[0].ID == "" {
			t.Errorf("point id must be assigned")
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	units := []domain.DocumentUnit{
		{ID: "u1", DocumentID: "doc-1", Content: "text one", Granularity: domain.GranularityFragment},
		{ID: "u2", DocumentID: "doc-1", Content: "text two", Granularity: domain.GranularityFragment},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}

	if err := client.IndexUnits(context.Background(), units, vectors); err != nil {
		t.Fatalf("IndexUnits() error = %v", err)
	}
	if len(paths) != 2 || paths[0] != "PUT /collections/docs" {
		t.Fatalf("request sequence = %v, want create-collection then upsert", paths)
	}

	// The collection is only ensured once per vector size.
	if err := client.IndexUnits(context.Background(), units, vectors); err != nil {
		t.Fatalf("IndexUnits() second call error = %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("request sequence after second call = %v", paths)
	}
}

func TestIndexUnitsTreatsExistingCollectionAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/docs" {
			w.WriteHeader(http.StatusConflict)
			return
		}
	}))
	defer server.Close()

	client := New(server.URL, "docs")
	err := client.IndexUnits(context.Background(),
		[]domain.DocumentUnit{{ID: "u1", Content: "text", Granularity: domain.GranularityFragment}},
		[][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("IndexUnits() error = %v, 409 means the collection already exists", err)
	}
}

func TestIndexUnitsRejectsMismatchedLengths(t *testing.T) {
	client := New("http://unreachable", "docs")
	err := client.IndexUnits(context.Background(),
		[]domain.DocumentUnit{{ID: "u1"}, {ID: "u2"}},
		[][]float32{{1}})
	if err == nil {
		t.Fatalf("IndexUnits() = nil, want mismatch error")
	}
}
