package advisor

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/wonny/aegis-watch/pkg/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// recommendationSchema is the strict structured output contract
var recommendationSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"picks": {
			Type:  jsonschema.Array,
			Items: &jsonschema.Definition{Type: jsonschema.String},
		},
		"reasons": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"ticker": {Type: jsonschema.String},
					"bullets": {
						Type:  jsonschema.Array,
						Items: &jsonschema.Definition{Type: jsonschema.String},
					},
				},
				Required:             []string{"ticker", "bullets"},
				AdditionalProperties: false,
			},
		},
		"risk": {Type: jsonschema.String},
	},
	Required:             []string{"picks", "reasons", "risk"},
	AdditionalProperties: false,
}

// OpenAI completes prompts with chat completions and a strict JSON schema
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI creates an OpenAI advisor
func NewOpenAI(cfg config.AdvisorConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Name returns the provider name
func (o *OpenAI) Name() string {
	return "openai"
}

// Complete sends one system+user exchange and returns the raw reply
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "watch_picks",
				Schema: &recommendationSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
