package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

func TestQdrantGetPoints(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/code/points" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("api-key header = %q", r.Header.Get("api-key"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"result": [
			{"id": 123456, "payload": {"repo": "shop-web", "path": "a.cs"}},
			{"id": "6f1c1a34-5f7e-4c5e-9a53-0a4f1b0f9d11", "payload": {"repo": "shop-api"}}
		], "status": "ok", "time": 0.001}`))
	}))
	defer srv.Close()

	c := NewQdrantClient(QdrantConfig{URL: srv.URL + "/", APIKey: "secret", Collection: "code"}, nil)
	points, err := c.GetPoints(context.Background(), []string{"123456", "6f1c1a34-5f7e-4c5e-9a53-0a4f1b0f9d11"})
	if err != nil {
		t.Fatalf("GetPoints: %v", err)
	}

	ids := got["ids"].([]any)
	if _, ok := ids[0].(float64); !ok {
		t.Errorf("numeric id sent as %T, want number", ids[0])
	}
	if _, ok := ids[1].(string); !ok {
		t.Errorf("uuid id sent as %T, want string", ids[1])
	}
	if got["with_payload"] != true {
		t.Errorf("with_payload = %v", got["with_payload"])
	}

	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	p := points[0].PayloadWithID()
	if p["id"] != json.Number("123456") || p["repo"] != "shop-web" {
		t.Errorf("payload = %v", p)
	}
	if points[1].ID != "6f1c1a34-5f7e-4c5e-9a53-0a4f1b0f9d11" {
		t.Errorf("uuid id = %v", points[1].ID)
	}
}

func TestQdrantErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": {"error": "Not found: Collection code doesn't exist!"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewQdrantClient(QdrantConfig{URL: srv.URL, Collection: "code"}, nil)
	if _, err := c.GetPoints(context.Background(), []string{"1"}); !apperr.HasCode(err, apperr.StoreUnavailable) {
		t.Errorf("status error = %v, want STORE_UNAVAILABLE", err)
	}

	srv.Close()
	if _, err := c.GetPoints(context.Background(), []string{"1"}); !apperr.HasCode(err, apperr.StoreUnavailable) {
		t.Errorf("transport error = %v, want STORE_UNAVAILABLE", err)
	}
}

func TestQdrantSearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/code/points/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"result": [{"id": 7, "score": 0.87, "payload": {"path": "a.cs"}}]}`))
	}))
	defer srv.Close()

	c := NewQdrantClient(QdrantConfig{URL: srv.URL, Collection: "code"}, newMockEmbedder(8))
	points, err := c.Search(context.Background(), "orders", 5, &SearchFilter{Repo: "shop-web", Lang: "csharp"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(points) != 1 || points[0].Score != 0.87 {
		t.Errorf("points = %+v", points)
	}
	if len(got["vector"].([]any)) != 8 {
		t.Errorf("vector length = %d", len(got["vector"].([]any)))
	}
	must := got["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 || must[0].(map[string]any)["key"] != "lang" {
		t.Errorf("must = %v", must)
	}

	noEmbed := NewQdrantClient(QdrantConfig{URL: srv.URL, Collection: "code"}, nil)
	if _, err := noEmbed.Search(context.Background(), "orders", 5, nil); !apperr.HasCode(err, apperr.InvalidArgument) {
		t.Errorf("search without embedder = %v, want INVALID_ARGUMENT", err)
	}
}
