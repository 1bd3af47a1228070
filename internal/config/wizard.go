package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to sherpa! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"bedrock", "anthropic", "openai"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)

	// 2. Model.
	model, err := ask("Model id", DefaultModel(cfg.LLM.Provider))
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.LLM.Model = model

	if cfg.LLM.Provider == ProviderBedrock {
		region, err := ask("AWS region (blank for the environment default)", os.Getenv("AWS_REGION"))
		if err != nil {
			return nil, fmt.Errorf("region: %w", err)
		}
		cfg.LLM.Region = region
	}

	// 3. Extraction layout.
	if cfg.InputDir, err = ask("Directory holding extraction JSON artifacts", cfg.InputDir); err != nil {
		return nil, fmt.Errorf("input dir: %w", err)
	}
	if cfg.RootMarker, err = ask("Checkout root marker segment", cfg.RootMarker); err != nil {
		return nil, fmt.Errorf("root marker: %w", err)
	}

	// 4. TOC backend.
	tocPrompt := promptui.Select{
		Label: "Table-of-contents backend",
		Items: []string{TOCSQLite, TOCMongo},
	}
	if _, cfg.TOC.Backend, err = tocPrompt.Run(); err != nil {
		return nil, fmt.Errorf("toc backend: %w", err)
	}
	if cfg.TOC.Backend == TOCMongo {
		uri, err := ask("Mongo URI (blank to build from MONGODB_* variables)", "")
		if err != nil {
			return nil, fmt.Errorf("mongo uri: %w", err)
		}
		cfg.TOC.Mongo.URI = uri
	}

	// 5. Snippet backend.
	snippetPrompt := promptui.Select{
		Label: "Snippet backend",
		Items: []string{SnippetsChromem, SnippetsQdrant},
	}
	if _, cfg.Snippets.Backend, err = snippetPrompt.Run(); err != nil {
		return nil, fmt.Errorf("snippet backend: %w", err)
	}
	if cfg.Snippets.Backend == SnippetsQdrant {
		if cfg.Snippets.Qdrant.URL, err = ask("Qdrant URL", cfg.Snippets.Qdrant.URL); err != nil {
			return nil, fmt.Errorf("qdrant url: %w", err)
		}
	}

	// 6. Rate limit.
	rpmPrompt := promptui.Prompt{
		Label:   "LLM requests per minute (0 for unlimited)",
		Default: "0",
		Validate: func(s string) error {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 0 {
				return fmt.Errorf("enter a non-negative integer")
			}
			return nil
		},
	}
	rpmStr, err := rpmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rpm: %w", err)
	}
	cfg.LLM.RPM, _ = strconv.Atoi(strings.TrimSpace(rpmStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.LLM.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running sherpa ask.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func ask(label, def string) (string, error) {
	p := promptui.Prompt{Label: label, Default: def, AllowEdit: true}
	out, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
