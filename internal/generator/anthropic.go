package generator

import (
	"context"
	"fmt"

	"github.com/aktagon/llmkit/anthropic/agents"
)

const anthropicSystemPrompt = "You write original technology articles for a blog. Answer only with the requested JSON object."

// AnthropicModel requests schema-constrained output through llmkit.
type AnthropicModel struct {
	agent *agents.ChatAgent
}

// NewAnthropicModel creates an Anthropic backed Model.
func NewAnthropicModel(apiKey string) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY must be set")
	}

	agent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating anthropic agent: %w", err)
	}
	return &AnthropicModel{agent: agent}, nil
}

// Complete runs the chat call. llmkit is not context aware, so cancellation
// is only observed before the call starts.
func (m *AnthropicModel) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	response, err := m.agent.Chat(req.Prompt, &agents.ChatOptions{
		SystemPrompt: anthropicSystemPrompt,
		Schema:       req.Schema,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic agent chat: %w", err)
	}

	return response.Text, nil
}
