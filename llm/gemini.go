package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	genaiClient *genai.Client
}

func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{genaiClient: genaiClient}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		req.Model,
		genai.Text(req.Prompt),
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	text := result.Text()
	slog.Info("Gemini response generated", "model", req.Model, "response_length", len(text))

	return &Response{Text: text}, nil
}
