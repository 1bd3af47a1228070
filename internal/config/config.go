package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: SHERPA_TOC__BACKEND sets toc.backend.
const EnvPrefix = "SHERPA_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SHERPA_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.TOC.Backend == TOCMongo && cfg.TOC.Mongo.URI == "" {
		cfg.TOC.Mongo.URI = MongoURIFromEnv()
	}
	return cfg, nil
}

// envKey maps SHERPA_LLM__MODEL to llm.model.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderBedrock:   true,
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
}

var (
	validTOCBackends     = map[string]bool{TOCSQLite: true, TOCMongo: true}
	validSnippetBackends = map[string]bool{SnippetsChromem: true, SnippetsQdrant: true}
	validLogLevels       = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats      = map[string]bool{"text": true, "json": true}
)

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RootMarker) == "" || strings.ContainsAny(c.RootMarker, `/\`) {
		return fmt.Errorf("root_marker must be a single path segment, got %q", c.RootMarker)
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of bedrock, anthropic, openai", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.RPM < 0 {
		return fmt.Errorf("llm.rpm must be non-negative")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive")
	}

	if !validTOCBackends[c.TOC.Backend] {
		return fmt.Errorf("invalid toc.backend %q: must be one of sqlite, mongo", c.TOC.Backend)
	}
	if c.TOC.Backend == TOCSQLite && c.TOC.SQLitePath == "" {
		return fmt.Errorf("toc.sqlite_path is required for the sqlite backend")
	}
	if c.TOC.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("toc.connect_timeout_seconds must be positive")
	}

	if !validSnippetBackends[c.Snippets.Backend] {
		return fmt.Errorf("invalid snippets.backend %q: must be one of chromem, qdrant", c.Snippets.Backend)
	}
	if c.Snippets.Backend == SnippetsQdrant && c.Snippets.Qdrant.URL == "" {
		return fmt.Errorf("snippets.qdrant.url is required for the qdrant backend")
	}

	r := c.Retrieval
	if r.ContextSummaryLimit < 1 || r.PreviewLimit < 1 || r.MaxResults < 1 {
		return fmt.Errorf("retrieval limits must be positive")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// LLMTimeout is the per-call completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ConnectTimeout is the bounded TOC connectivity timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.TOC.ConnectTimeoutSeconds) * time.Second
}

// QdrantTimeout bounds each Qdrant REST call.
func (c *Config) QdrantTimeout() time.Duration {
	return time.Duration(c.Snippets.Qdrant.TimeoutSeconds) * time.Second
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider. Bedrock uses the AWS credential chain.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
