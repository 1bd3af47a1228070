package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// TextCompleter turns a single prompt into a single completion. It is the
// only LLM surface the retrieval pipeline depends on.
type TextCompleter interface {
	Complete(ctx context.Context, prompt, modelID string) (string, error)
}

// Completer adapts a Provider to TextCompleter. Every call is bounded by Timeout.
type Completer struct {
	Provider  Provider
	Timeout   time.Duration
	MaxTokens int
}

// NewCompleter creates a Completer with the given per-call timeout.
func NewCompleter(p Provider, timeout time.Duration) *Completer {
	return &Completer{Provider: p, Timeout: timeout}
}

// Complete sends prompt as one user message. An empty modelID uses the
// provider's configured model. Failures are UpstreamFailure errors.
func (c *Completer) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.Provider.Complete(ctx, CompletionRequest{
		Model:     modelID,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: c.MaxTokens,
	})
	if err != nil {
		return "", apperr.New(apperr.UpstreamFailure, c.Provider.Name()+" completion failed", err)
	}
	slog.Debug("llm completion",
		"provider", c.Provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed", time.Since(start))
	return resp.Content, nil
}
