package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderBedrock   ProviderType = "bedrock"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
)

// Backend names for the TOC and snippet stores.
const (
	TOCSQLite       = "sqlite"
	TOCMongo        = "mongo"
	SnippetsChromem = "chromem"
	SnippetsQdrant  = "qdrant"
)

// Config is the top-level sherpa configuration, corresponding to .sherpa.yml.
type Config struct {
	// RootMarker is the checkout-root path segment used to derive repo and program.
	RootMarker   string   `yaml:"root_marker" koanf:"root_marker"`
	PatternsFile string   `yaml:"patterns_file,omitempty" koanf:"patterns_file"`
	InputDir     string   `yaml:"input_dir" koanf:"input_dir"`
	SourceRoot   string   `yaml:"source_root,omitempty" koanf:"source_root"`
	FeaturesFile string   `yaml:"features_file" koanf:"features_file"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`

	TOC       TOCConfig       `yaml:"toc" koanf:"toc"`
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Snippets  SnippetsConfig  `yaml:"snippets" koanf:"snippets"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" koanf:"telemetry"`
}

// TOCConfig selects and configures the table-of-contents backend.
type TOCConfig struct {
	Backend               string      `yaml:"backend" koanf:"backend"`
	SQLitePath            string      `yaml:"sqlite_path" koanf:"sqlite_path"`
	Mongo                 MongoConfig `yaml:"mongo" koanf:"mongo"`
	ConnectTimeoutSeconds int         `yaml:"connect_timeout_seconds" koanf:"connect_timeout_seconds"`
}

// MongoConfig holds the Mongo TOC settings. An empty URI is assembled from
// the MONGODB_* environment variables.
type MongoConfig struct {
	URI        string `yaml:"uri,omitempty" koanf:"uri"`
	Database   string `yaml:"database" koanf:"database"`
	Collection string `yaml:"collection" koanf:"collection"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider       ProviderType `yaml:"provider" koanf:"provider"`
	Model          string       `yaml:"model" koanf:"model"`
	BaseURL        string       `yaml:"base_url,omitempty" koanf:"base_url"`
	Region         string       `yaml:"region,omitempty" koanf:"region"`
	Profile        string       `yaml:"profile,omitempty" koanf:"profile"`
	RPM            int          `yaml:"rpm" koanf:"rpm"`
	TimeoutSeconds int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxTokens      int          `yaml:"max_tokens" koanf:"max_tokens"`
}

// EmbeddingConfig configures the OpenAI-compatible embedder used by the snippet index.
type EmbeddingConfig struct {
	Model   string `yaml:"model" koanf:"model"`
	BaseURL string `yaml:"base_url,omitempty" koanf:"base_url"`
}

// SnippetsConfig selects and configures the snippet backend.
type SnippetsConfig struct {
	Backend string       `yaml:"backend" koanf:"backend"`
	Dir     string       `yaml:"dir" koanf:"dir"`
	Qdrant  QdrantConfig `yaml:"qdrant" koanf:"qdrant"`
}

// QdrantConfig holds the Qdrant REST settings.
type QdrantConfig struct {
	URL            string `yaml:"url" koanf:"url"`
	APIKey         string `yaml:"api_key,omitempty" koanf:"api_key"`
	Collection     string `yaml:"collection" koanf:"collection"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// RetrievalConfig holds the orchestrator limits and prompt overrides.
type RetrievalConfig struct {
	ContextSummaryLimit int    `yaml:"context_summary_limit" koanf:"context_summary_limit"`
	PreviewLimit        int    `yaml:"preview_limit" koanf:"preview_limit"`
	MaxResults          int    `yaml:"max_results" koanf:"max_results"`
	PromptsDir          string `yaml:"prompts_dir,omitempty" koanf:"prompts_dir"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string   `yaml:"addr" koanf:"addr"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty" koanf:"endpoint"`
	Insecure    bool   `yaml:"insecure" koanf:"insecure"`
	ServiceName string `yaml:"service_name" koanf:"service_name"`
}
