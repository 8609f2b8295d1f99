package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"0.83", 0.83},
		{"  0.83\n", 0.83},
		{"0.83/1", 0.83},
		{"Score: 0.83", 0.83},
		{"relevance is 0.4", 0.4},
		{"1.7", 1},
		{"-0.2", 0},
		{"0", 0},
		{"1", 1},
	}
	for _, tc := range cases {
		got, err := parseScore(tc.raw)
		if err != nil {
			t.Fatalf("parseScore(%q) error = %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseScore(%q) = %f, want %f", tc.raw, got, tc.want)
		}
	}
}

func TestParseScoreRejectsNonNumeric(t *testing.T) {
	for _, raw := range []string{"", "the passage is relevant", "n/a"} {
		if _, err := parseScore(raw); err == nil {
			t.Fatalf("parseScore(%q) = nil, want error", raw)
		}
	}
}

func TestEmbedSendsBatchAndDecodesVectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s, want /api/embed", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "nomic-embed-text" {
			t.Errorf("model = %v", body["model"])
		}
		input, _ := body["input"].([]any)
		if len(input) != 2 {
			t.Errorf("input = %v, want 2 texts", input)
		}
		_, _ = w.Write([]byte(`{"embeddings": [[0.1, 0.2], [0.3, 0.4]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "qwen2.5:3b", "nomic-embed-text"))
	vectors, err := embedder.Embed(context.Background(), []string{"HCP检测", "内毒素"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][1] != 0.2 {
		t.Fatalf("vectors = %v", vectors)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[0.1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "", "nomic-embed-text"))
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("Embed() = nil, want count mismatch error")
	}
}

func TestEmbedEmptyInputSkipsRequest(t *testing.T) {
	embedder := NewEmbedder(New("http://unreachable", "", "nomic-embed-text"))
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("Embed(nil) = (%v, %v), want (nil, nil)", vectors, err)
	}
}

func TestScoreParsesModelAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != false {
			t.Errorf("stream = %v, want false", body["stream"])
		}
		prompt, _ := body["prompt"].(string)
		if prompt == "" {
			t.Errorf("empty prompt")
		}
		_, _ = w.Write([]byte(`{"response": "0.83"}`))
	}))
	defer server.Close()

	scorer := NewScorer(New(server.URL, "qwen2.5:3b", ""))
	score, err := scorer.Score(context.Background(), "HCP限度是多少", "宿主细胞蛋白残留量应不超过100ppm")
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score != 0.83 {
		t.Fatalf("score = %f, want 0.83", score)
	}
}

func TestScoreSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scorer := NewScorer(New(server.URL, "qwen2.5:3b", ""))
	if _, err := scorer.Score(context.Background(), "q", "text"); err == nil {
		t.Fatalf("Score() = nil, want transport error")
	}
}

func TestTruncateRunes(t *testing.T) {
	long := make([]rune, 2000)
	for i := range long {
		long[i] = '检'
	}
	got := truncateRunes(string(long), 1500)
	if n := len([]rune(got)); n != 1500 {
		t.Fatalf("truncated length = %d, want 1500", n)
	}
	if truncateRunes("short", 1500) != "short" {
		t.Fatalf("short input must pass through unchanged")
	}
}
