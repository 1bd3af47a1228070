package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
	calls   [][]string
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	return s.vectors, s.err
}
func (s *stubEmbedder) Dimensions() int { return 2 }
func (s *stubEmbedder) Name() string    { return "stub" }

func TestChromemFunc(t *testing.T) {
	stub := &stubEmbedder{vectors: [][]float32{{0.6, 0.8}}}
	vec, err := ChromemFunc(stub)(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 || len(stub.calls) != 1 || stub.calls[0][0] != "hello" {
		t.Errorf("vec = %v, calls = %v", vec, stub.calls)
	}

	stub.err = errors.New("boom")
	if _, err := ChromemFunc(stub)(context.Background(), "x"); err == nil {
		t.Error("expected error to propagate")
	}

	if _, err := ChromemFunc(nil)(context.Background(), "x"); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("nil embedder: err = %v, want ErrNoEmbedder", err)
	}
}

func TestOpenAIEmbedderBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{1, 0}}
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("test-key", "", srv.URL+"/v1")
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
	if e.Dimensions() != 1536 || e.Name() != "text-embedding-3-small" {
		t.Errorf("dims/name = %d/%s", e.Dimensions(), e.Name())
	}
}
