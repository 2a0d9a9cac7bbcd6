package generator

import (
	"fmt"

	"github.com/blog0/narrator/internal/config"
)

// NewFromConfig builds a Generator for the configured provider.
// Missing credentials fail here, not on the first scheduled run.
func NewFromConfig(cfg *config.Config) (*Generator, error) {
	var (
		model Model
		err   error
	)

	switch cfg.GeneratorProvider {
	case "openai":
		model, err = NewOpenAIModel(cfg.OpenAIAPIKey, cfg.Settings.Generator.Model)
	case "anthropic":
		model, err = NewAnthropicModel(cfg.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("unknown GENERATOR_PROVIDER %q (want openai or anthropic)", cfg.GeneratorProvider)
	}
	if err != nil {
		return nil, err
	}

	return New(model, Options{
		Prompt:      cfg.Settings.Generator.Prompt,
		MaxTokens:   cfg.Settings.Generator.MaxTokens,
		Temperature: cfg.Settings.Generator.Temperature,
	})
}
