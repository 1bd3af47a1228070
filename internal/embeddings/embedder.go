package embeddings

import (
	"context"
	"errors"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ErrNoEmbedder is returned by semantic operations when no embedding model
// is configured.
var ErrNoEmbedder = errors.New("no embedding model configured: set OPENAI_API_KEY or embedding.base_url")

// Embedder turns snippet text into vectors for the semantic snippet backends.
type Embedder interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name is the model id stored alongside the vectors.
	Name() string
}

// ChromemFunc adapts e to chromem's one-text-at-a-time embedding hook. A nil
// Embedder yields a func that fails with ErrNoEmbedder.
func ChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if e == nil {
			return nil, ErrNoEmbedder
		}
		vecs, err := e.Embed(ctx, []string{text})
		switch {
		case err != nil:
			return nil, err
		case len(vecs) != 1:
			return nil, fmt.Errorf("%s: got %d vectors for one text", e.Name(), len(vecs))
		}
		return vecs[0], nil
	}
}
