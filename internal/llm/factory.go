package llm

import (
	"context"
	"fmt"
	"os"
)

// Options selects and configures a provider.
type Options struct {
	// Provider is one of "bedrock", "openai", "anthropic".
	Provider string
	Model    string
	// BaseURL overrides the API endpoint for openai and anthropic.
	BaseURL string
	// Region and Profile configure the AWS client for bedrock.
	Region  string
	Profile string
	// RPM caps requests per minute; 0 disables limiting.
	RPM int
}

// NewProvider creates a new LLM provider based on the given options.
// API keys are read from OPENAI_API_KEY and ANTHROPIC_API_KEY; bedrock uses
// the AWS default credential chain.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch opts.Provider {
	case "bedrock":
		p, err = NewBedrockProvider(ctx, opts.Model, opts.Region, opts.Profile)
		if err != nil {
			return nil, err
		}

	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		p = NewAnthropicProvider(apiKey, opts.Model, opts.BaseURL)

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" && opts.BaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p = NewOpenAIProvider(apiKey, opts.Model, opts.BaseURL)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}
	return Throttle(p, opts.RPM), nil
}
