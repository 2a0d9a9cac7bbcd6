package generator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIModel requests structured output through the chat completions API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAI backed Model. extra options are passed to
// the SDK client (base URL overrides in tests, custom HTTP clients).
func NewOpenAIModel(apiKey, model string, extra ...option.RequestOption) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if model == "" {
		model = "gpt-4o"
	}

	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, extra...)
	client := openai.NewClient(opts...)
	return &OpenAIModel{client: &client, model: model}, nil
}

func (m *OpenAIModel) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: schemaDocument(),
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
