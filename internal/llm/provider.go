package llm

import (
	"context"
	"strings"
)

// DefaultMaxTokens caps a completion when the request leaves MaxTokens unset.
// Filter objects and pattern lists are short, so this is generous.
const DefaultMaxTokens = 1000

// Role is the author of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-neutral chat request. Empty Model and zero
// MaxTokens fall back to the provider's model and DefaultMaxTokens.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage counts the tokens billed for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionResponse is the text a provider returned plus its accounting.
type CompletionResponse struct {
	Content    string
	Model      string
	StopReason string
	Usage      Usage
}

// Provider is a chat completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name is the short provider id used in logs and errors.
	Name() string
}

func (r CompletionRequest) modelOr(fallback string) string {
	if r.Model != "" {
		return r.Model
	}
	return fallback
}

func (r CompletionRequest) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

// splitSystem separates system turns, joined by blank lines, from the
// conversation. APIs with a top-level system field need this shape.
func (r CompletionRequest) splitSystem() (string, []Message) {
	var (
		system []string
		turns  []Message
	)
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}
