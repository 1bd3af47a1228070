package embeddings

import (
	"context"
	"fmt"
	"slices"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when embedding.model is empty.
const DefaultModel = "text-embedding-3-small"

// requestBatch bounds the inputs sent in one embeddings call.
const requestBatch = 100

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder calls the embeddings endpoint of OpenAI or any compatible
// server reachable at baseURL.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIEmbedder) Name() string { return e.model }

// Dimensions reports the vector size of known models. Unknown models, such
// as local ones behind a compatible server, report 0.
func (e *OpenAIEmbedder) Dimensions() int { return modelDimensions[e.model] }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for batch := range slices.Chunk(texts, requestBatch) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding %d texts with %s: %w", len(batch), e.model, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%s returned %d vectors for %d texts", e.model, len(resp.Data), len(batch))
		}

		vecs := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, fmt.Errorf("%s returned out of range index %d", e.model, d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		out = append(out, vecs...)
	}
	return out, nil
}
