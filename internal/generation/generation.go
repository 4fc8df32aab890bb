package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"campaign_feed/internal/config"
	"campaign_feed/internal/domain"
)

// ErrMissingCredential is a configuration error: the job fails without a
// network attempt and is never retried.
var ErrMissingCredential = errors.New("no API key configured")

var ErrEmptyResponse = errors.New("empty response from API")

const minAPIKeyLength = 10

type Request struct {
	ID         string
	Kind       domain.JobKind
	Prompt     string
	RetryCount int
}

type Response struct {
	Text       string
	TokensUsed int
	Cost       float64
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// APIError is a non-2xx answer from a remote provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "invalid API key: check the configured api_key"
	case http.StatusPaymentRequired:
		return "insufficient credits: add credits to the provider account"
	case http.StatusTooManyRequests:
		return "rate limited: wait a moment before retrying"
	}
	if e.Body == "" {
		return fmt.Sprintf("api error status=%d", e.StatusCode)
	}
	return fmt.Sprintf("api error status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether a failed attempt may be repeated. Configuration
// errors and caller cancellation are final; everything else gets a retry.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func checkCredential(key string) error {
	if len(strings.TrimSpace(key)) < minAPIKeyLength {
		return ErrMissingCredential
	}
	return nil
}

// New builds the provider selected in cfg.
func New(ctx context.Context, cfg config.GenerationConfig, logger *log.Logger) (Generator, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch cfg.Provider {
	case config.ProviderOpenRouter:
		return NewOpenRouter(OpenRouterConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
			Timeout:  time.Duration(cfg.CallTimeoutMS) * time.Millisecond,
			Logger:   logger,
		})
	case config.ProviderGemini:
		return NewGemini(ctx, GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
			Logger: logger,
		})
	case config.ProviderMock:
		return NewMock(MockConfig{
			MinLatency: time.Duration(cfg.MockLatencyMS[0]) * time.Millisecond,
			MaxLatency: time.Duration(cfg.MockLatencyMS[1]) * time.Millisecond,
			FailRate:   cfg.MockFailRate,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
