package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wonny/aegis-watch/pkg/config"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

type messageFunc func(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)

// Claude completes prompts with the Anthropic messages API
type Claude struct {
	newMessage  messageFunc
	model       string
	maxTokens   int64
	temperature float64
}

// NewClaude creates a Claude advisor
func NewClaude(cfg config.AdvisorConfig) *Claude {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	return &Claude{
		newMessage:  client.Messages.New,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name
func (c *Claude) Name() string {
	return "claude"
}

// Complete sends one system+user exchange and returns the concatenated text blocks
func (c *Claude) Complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}

	msg, err := c.newMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}

	if out.Len() == 0 {
		return "", errors.New("no response from anthropic")
	}
	return out.String(), nil
}
