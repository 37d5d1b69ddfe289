package advisor

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/wonny/aegis-watch/pkg/config"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini completes prompts with the Gemini API and a response schema
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGemini creates a Gemini advisor
func NewGemini(ctx context.Context, cfg config.AdvisorConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &Gemini{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}, nil
}

// Name returns the provider name
func (g *Gemini) Name() string {
	return "gemini"
}

// Complete sends one system+user exchange and returns the reply text
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiSchema(),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("no response from gemini")
	}
	return text, nil
}

func geminiSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"picks": {Type: genai.TypeArray, Items: str},
			"reasons": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"ticker":  str,
						"bullets": {Type: genai.TypeArray, Items: str},
					},
					Required: []string{"ticker", "bullets"},
				},
			},
			"risk": str,
		},
		Required: []string{"picks", "reasons", "risk"},
	}
}
