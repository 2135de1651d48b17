package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	ProviderTogether   = "together"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("llm: unknown provider")

// New builds the named provider. baseURL overrides the provider's default
// endpoint when non-empty.
func New(name, baseURL, apiKey string, client *http.Client) (Provider, error) {
	switch strings.ToLower(name) {
	case ProviderTogether, "":
		if baseURL == "" {
			baseURL = TogetherURL
		}
		return NewOpenAIProvider(ProviderTogether, baseURL, apiKey, client), nil
	case ProviderOpenRouter:
		if baseURL == "" {
			baseURL = OpenRouterURL
		}
		return NewOpenAIProvider(ProviderOpenRouter, baseURL, apiKey, client), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(baseURL, apiKey, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
