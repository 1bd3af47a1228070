package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/embeddings"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/llm"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/patterns"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/prompts"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/snippets"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sherpa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// loadRegistry returns the configured pattern registry, or the built-in rules.
func loadRegistry(cfg *config.Config) (*patterns.Registry, error) {
	if cfg.PatternsFile == "" {
		return patterns.Default(), nil
	}
	return patterns.LoadFile(cfg.PatternsFile)
}

// openTOC opens the configured table-of-contents backend.
func openTOC(ctx context.Context, cfg *config.Config) (toc.Store, error) {
	switch cfg.TOC.Backend {
	case config.TOCMongo:
		return toc.OpenMongo(ctx, toc.MongoConfig{
			URI:            cfg.TOC.Mongo.URI,
			Database:       cfg.TOC.Mongo.Database,
			Collection:     cfg.TOC.Mongo.Collection,
			ConnectTimeout: cfg.ConnectTimeout(),
		})
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.TOC.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating toc directory: %w", err)
		}
		return toc.OpenSQLite(cfg.TOC.SQLitePath)
	}
}

// createCompleterFromConfig creates the rate-limited, timeout-bounded LLM
// completer used by the orchestrator.
func createCompleterFromConfig(ctx context.Context, cfg *config.Config) (*llm.Completer, error) {
	provider, err := llm.NewProvider(ctx, llm.Options{
		Provider: string(cfg.LLM.Provider),
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Region:   cfg.LLM.Region,
		Profile:  cfg.LLM.Profile,
		RPM:      cfg.LLM.RPM,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	c := llm.NewCompleter(provider, cfg.LLMTimeout())
	c.MaxTokens = cfg.LLM.MaxTokens
	return c, nil
}

// createOrchestrator wires the answer pipeline over store.
func createOrchestrator(ctx context.Context, cfg *config.Config, store toc.Store) (*retrieval.Orchestrator, error) {
	completer, err := createCompleterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	lib := prompts.Default()
	if cfg.Retrieval.PromptsDir != "" {
		if lib, err = prompts.Load(cfg.Retrieval.PromptsDir); err != nil {
			return nil, err
		}
	}
	return retrieval.New(completer, store, lib, retrieval.Config{
		ContextSummaryLimit: cfg.Retrieval.ContextSummaryLimit,
		PreviewLimit:        cfg.Retrieval.PreviewLimit,
		MaxResults:          cfg.Retrieval.MaxResults,
		DefaultModel:        cfg.LLM.Model,
	}), nil
}

// createEmbedderFromConfig creates the OpenAI-compatible embedder used by
// the snippet index. It returns nil when no API key is available and no
// custom endpoint is configured, which leaves semantic search disabled.
func createEmbedderFromConfig(cfg *config.Config) embeddings.Embedder {
	apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
	if apiKey == "" && cfg.Embedding.BaseURL == "" {
		return nil
	}
	return embeddings.NewOpenAIEmbedder(apiKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
}

// openChromem creates the local snippet store and loads its persisted file
// when present.
func openChromem(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (*vectordb.ChromemStore, error) {
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Snippets.Dir, vectordb.PersistFile)); err == nil {
		if err := store.Load(ctx, cfg.Snippets.Dir); err != nil {
			return nil, fmt.Errorf("loading vector store from %s: %w", cfg.Snippets.Dir, err)
		}
	}
	return store, nil
}

// openSnippets creates the snippet service over the configured backend.
func openSnippets(ctx context.Context, cfg *config.Config) (*snippets.Service, error) {
	embedder := createEmbedderFromConfig(cfg)
	switch cfg.Snippets.Backend {
	case config.SnippetsQdrant:
		q := cfg.Snippets.Qdrant
		client := vectordb.NewQdrantClient(vectordb.QdrantConfig{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    cfg.QdrantTimeout(),
		}, embedder)
		return snippets.NewService(snippets.QdrantBackend{Client: client}), nil
	default:
		store, err := openChromem(ctx, cfg, embedder)
		if err != nil {
			return nil, err
		}
		slog.Debug("snippet store loaded", "dir", cfg.Snippets.Dir, "documents", store.Count())
		return snippets.NewService(snippets.ChromemBackend{Store: store}), nil
	}
}
