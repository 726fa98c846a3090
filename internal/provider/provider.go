// Package provider abstracts the LLM completion service used by the
// idea-brief tool. Handlers depend on the CompletionClient interface; the
// concrete provider is chosen from configuration at startup.
package provider

import (
	"context"
	"fmt"
)

// CompletionRequest is a single-turn completion call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// CompletionClient generates text from a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the configured provider client.
func New(cfg Config) (CompletionClient, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ai_api_key is required for the openai provider")
		}
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ai_api_key is required for the anthropic provider")
		}
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: openai, anthropic)", cfg.Provider)
	}
}
