package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"campaign_feed/internal/domain"
	"campaign_feed/internal/parser"
)

func newTestOpenRouter(t *testing.T, endpoint, key string) *OpenRouter {
	t.Helper()
	g, err := NewOpenRouter(OpenRouterConfig{
		Endpoint: endpoint,
		Model:    "anthropic/claude-sonnet-4-20250514",
		APIKey:   key,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new openrouter: %v", err)
	}
	return g
}

func TestOpenRouterGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-or-test-key-123" {
			t.Errorf("authorization=%q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"reaction\":\"like\"}"}}],"usage":{"prompt_tokens":1000000,"completion_tokens":0,"total_tokens":1000000}}`)
	}))
	defer srv.Close()

	g := newTestOpenRouter(t, srv.URL, "sk-or-test-key-123")
	resp, err := g.Generate(context.Background(), Request{ID: "r1", Kind: domain.JobPersonaResponse, Prompt: "hello"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != `{"reaction":"like"}` {
		t.Fatalf("text=%q", resp.Text)
	}
	if resp.TokensUsed != 1000000 || math.Abs(resp.Cost-3) > 1e-9 {
		t.Fatalf("usage tokens=%d cost=%v", resp.TokensUsed, resp.Cost)
	}
}

func TestOpenRouterMissingCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	g := newTestOpenRouter(t, srv.URL, "short")
	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err=%v want ErrMissingCredential", err)
	}
	if Retryable(err) {
		t.Fatalf("missing credential must not be retryable")
	}
	if hits.Load() != 0 {
		t.Fatalf("server was called %d times", hits.Load())
	}
}

func TestOpenRouterStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "invalid API key"},
		{http.StatusPaymentRequired, "insufficient credits"},
		{http.StatusTooManyRequests, "rate limited"},
		{http.StatusBadGateway, "status=502"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		g := newTestOpenRouter(t, srv.URL, "sk-or-test-key-123")
		_, err := g.Generate(context.Background(), Request{Prompt: "x"})
		srv.Close()

		var apiErr APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
			t.Fatalf("status=%d err=%v", tc.status, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("status=%d message=%q want containing %q", tc.status, err.Error(), tc.want)
		}
		if !Retryable(err) {
			t.Fatalf("status=%d should be retryable", tc.status)
		}
	}
}

func TestOpenRouterEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`)
	}))
	defer srv.Close()

	g := newTestOpenRouter(t, srv.URL, "sk-or-test-key-123")
	if _, err := g.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err=%v want ErrEmptyResponse", err)
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost("openai/gpt-4o", 1_000_000, 1_000_000); math.Abs(got-20) > 1e-9 {
		t.Fatalf("gpt-4o cost=%v want=20", got)
	}
	if got := EstimateCost("unknown/model", 500_000, 1_000_000); math.Abs(got-3.5) > 1e-9 {
		t.Fatalf("default cost=%v want=3.5", got)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Fatalf("nil should not be retryable")
	}
	if Retryable(context.Canceled) {
		t.Fatalf("cancellation should not be retryable")
	}
	if !Retryable(context.DeadlineExceeded) {
		t.Fatalf("timeout should be retryable")
	}
	if !Retryable(errors.New("connection reset")) {
		t.Fatalf("transport error should be retryable")
	}
}

func TestMockPayloadsParse(t *testing.T) {
	m := NewMock(MockConfig{Seed: 7})
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		resp, err := m.Generate(ctx, Request{Kind: domain.JobPersonaResponse})
		if err != nil {
			t.Fatalf("persona mock: %v", err)
		}
		reply := parser.ParsePersona(resp.Text)
		if reply.SentimentShift < -10 || reply.SentimentShift > 10 {
			t.Fatalf("sentiment out of range: %d", reply.SentimentShift)
		}
		if resp.TokensUsed < 100 || resp.TokensUsed >= 250 {
			t.Fatalf("tokens=%d", resp.TokensUsed)
		}
	}
	resp, err := m.Generate(ctx, Request{Kind: domain.JobNewsGeneration})
	if err != nil {
		t.Fatalf("news mock: %v", err)
	}
	if _, ok := parser.ParseNews(resp.Text); !ok {
		t.Fatalf("mock news did not parse: %s", resp.Text)
	}
	resp, err = m.Generate(ctx, Request{Kind: domain.JobRivalPost})
	if err != nil {
		t.Fatalf("rival mock: %v", err)
	}
	if _, ok := parser.ParseRival(resp.Text); !ok {
		t.Fatalf("mock rival did not parse: %s", resp.Text)
	}
}

func TestMockHonoursCancellation(t *testing.T) {
	m := NewMock(MockConfig{MinLatency: time.Second, MaxLatency: time.Second, Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Generate(ctx, Request{Kind: domain.JobPersonaResponse}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestMockFailureRate(t *testing.T) {
	m := NewMock(MockConfig{FailRate: 1, Seed: 3})
	if _, err := m.Generate(context.Background(), Request{Kind: domain.JobPersonaResponse}); err == nil {
		t.Fatalf("expected simulated failure")
	}
}
