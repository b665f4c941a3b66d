package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider names for chain configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Provider is one LLM backend in the fallback chain. Implementations
// must be safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Name() string
	Model() string
}

// CompletionRequest is a single prompt/response exchange. When Schema is
// set the provider asks for structured JSON output conforming to it;
// providers without native structured output fold the schema into the
// system prompt.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

// Completion is the provider's answer plus usage accounting. Cost is
// computed from the provider's configured per-token pricing.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Config holds one provider's credentials, model, and pricing.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// New creates a Provider for the named backend.
func New(name string, cfg Config) (Provider, error) {
	switch name {
	case ProviderOpenAI:
		return newOpenAIProvider(cfg)
	case ProviderAnthropic:
		return newAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

// GenerateSchema generates a JSON schema from a struct type, for
// providers that support structured output natively.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

func cost(cfg Config, promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*cfg.InputCostPer1K +
		float64(completionTokens)/1000*cfg.OutputCostPer1K
}
