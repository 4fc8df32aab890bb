package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCallTimeout       = 30 * time.Second
	defaultMaxTokens         = 2000
	defaultTemperature       = 0.8
	maxHTTPErrorBodyReadSize = 64 * 1024
	maxResponseBodySize      = 4 * 1024 * 1024
)

type OpenRouterConfig struct {
	Endpoint    string
	Model       string
	APIKey      string
	Title       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	Logger      *log.Logger
	Client      *http.Client
}

// OpenRouter talks to an OpenAI-compatible chat completions endpoint.
type OpenRouter struct {
	endpoint    string
	model       string
	apiKey      string
	title       string
	maxTokens   int
	temperature float64
	logger      *log.Logger
	client      *http.Client
}

func NewOpenRouter(cfg OpenRouterConfig) (*OpenRouter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("empty API endpoint")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid API endpoint %q: %w", endpoint, err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("empty model")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = "Campaign Feed Simulator"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &OpenRouter{
		endpoint:    endpoint,
		model:       model,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		title:       title,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      cfg.Logger,
		client:      client,
	}, nil
}

func (g *OpenRouter) Generate(ctx context.Context, req Request) (Response, error) {
	if err := checkCredential(g.apiKey); err != nil {
		return Response{}, err
	}

	payload := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create API request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("X-Title", g.title)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("chat completions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxHTTPErrorBodyReadSize))
		if readErr != nil {
			return Response{}, fmt.Errorf("chat completions status=%d and read body failed: %w", resp.StatusCode, readErr)
		}
		return Response{}, APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return Response{}, ErrEmptyResponse
	}

	result := Response{Text: out.Choices[0].Message.Content}
	if out.Usage != nil {
		result.TokensUsed = out.Usage.TotalTokens
		result.Cost = EstimateCost(g.model, out.Usage.PromptTokens, out.Usage.CompletionTokens)
	}
	g.logger.Printf("generation ok provider=openrouter id=%s kind=%s tokens=%d", req.ID, req.Kind, result.TokensUsed)
	return result, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
