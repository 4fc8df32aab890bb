package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	Logger *log.Logger
}

type Gemini struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

// NewGemini builds the Gemini provider. Without a usable key the provider is
// still returned and every job fails with ErrMissingCredential.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("empty model")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	g := &Gemini{model: model, logger: cfg.Logger}
	if checkCredential(cfg.APIKey) != nil {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	if g.client == nil {
		return Response{}, ErrMissingCredential
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](defaultTemperature),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, APIError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return Response{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return Response{}, ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, ErrEmptyResponse
	}

	out := Response{Text: text.String()}
	if usage := result.UsageMetadata; usage != nil {
		out.TokensUsed = int(usage.TotalTokenCount)
		out.Cost = EstimateCost(g.model, int(usage.PromptTokenCount), int(usage.CandidatesTokenCount))
	}
	g.logger.Printf("generation ok provider=gemini id=%s kind=%s tokens=%d", req.ID, req.Kind, out.TokensUsed)
	return out, nil
}
