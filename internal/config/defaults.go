package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = ".sherpa.yml"

// defaultModels is the model proposed for each provider.
var defaultModels = map[ProviderType]string{
	ProviderBedrock:   "amazon.nova-lite-v1:0",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o-mini",
}

// DefaultModel returns the default model for provider, or "".
func DefaultModel(p ProviderType) string {
	return defaultModels[p]
}

// DefaultExcludes are glob patterns skipped during artifact discovery.
var DefaultExcludes = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/*.min.json",
	"**/package-lock.json",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootMarker:   "dev",
		InputDir:     "output",
		FeaturesFile: ".sherpa/features.json",
		Include:      []string{"**/*.json"},
		Exclude:      DefaultExcludes,
		TOC: TOCConfig{
			Backend:    TOCSQLite,
			SQLitePath: ".sherpa/toc.db",
			Mongo: MongoConfig{
				Database:   "code_routing",
				Collection: "features",
			},
			ConnectTimeoutSeconds: 5,
		},
		LLM: LLMConfig{
			Provider:       ProviderBedrock,
			Model:          defaultModels[ProviderBedrock],
			TimeoutSeconds: 120,
			MaxTokens:      1000,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Snippets: SnippetsConfig{
			Backend: SnippetsChromem,
			Dir:     ".sherpa/snippets",
			Qdrant: QdrantConfig{
				URL:            "http://localhost:6333",
				Collection:     "code",
				TimeoutSeconds: 10,
			},
		},
		Retrieval: RetrievalConfig{
			ContextSummaryLimit: 10,
			PreviewLimit:        3,
			MaxResults:          50,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "sourcesherpa",
		},
	}
}

// MongoURIFromEnv assembles a Mongo URI from MONGODB_HOST, MONGODB_PORT,
// MONGODB_USERNAME and MONGODB_PASSWORD. Credentials authenticate against admin.
func MongoURIFromEnv() string {
	host := envOr("MONGODB_HOST", "localhost")
	port := envOr("MONGODB_PORT", "27017")
	if _, err := strconv.Atoi(port); err != nil {
		port = "27017"
	}
	user, pass := os.Getenv("MONGODB_USERNAME"), os.Getenv("MONGODB_PASSWORD")
	if user != "" && pass != "" {
		return fmt.Sprintf("mongodb://%s@%s:%s/?authSource=admin",
			url.UserPassword(user, pass).String(), host, port)
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
