package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"campaign_feed/internal/domain"
)

var errMockFailure = errors.New("mock API timeout (simulated)")

type MockConfig struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	FailRate   float64
	Seed       uint64
}

// Mock produces canned payloads in the same shapes a real model returns.
type Mock struct {
	minLatency time.Duration
	maxLatency time.Duration
	failRate   float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMock(cfg MockConfig) *Mock {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Mock{
		minLatency: cfg.MinLatency,
		maxLatency: cfg.MaxLatency,
		failRate:   cfg.FailRate,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (m *Mock) Generate(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	latency := m.minLatency
	if span := m.maxLatency - m.minLatency; span > 0 {
		latency += time.Duration(m.rng.Int64N(int64(span)))
	}
	fail := m.rng.Float64() < m.failRate
	var payload any
	switch req.Kind {
	case domain.JobNewsGeneration:
		h := mockHeadlines[m.rng.IntN(len(mockHeadlines))]
		payload = map[string]any{
			"headline":       h.headline,
			"description":    "This is a developing story that may affect the campaign.",
			"affectedIssues": h.issues,
		}
	case domain.JobRivalPost:
		p := mockRivalPosts[m.rng.IntN(len(mockRivalPosts))]
		payload = map[string]any{"content": p.content, "issueTags": p.issues}
	default:
		t := mockReactions[m.rng.IntN(len(mockReactions))]
		jitter := (m.rng.Float64() - 0.5) * 4
		shift := int(math.Round(math.Max(-10, math.Min(10, float64(t.sentiment)+jitter))))
		var comment any
		if t.comment != "" {
			comment = t.comment
		}
		payload = map[string]any{"reaction": t.reaction, "comment": comment, "sentimentShift": shift}
	}
	tokens := 100 + m.rng.IntN(150)
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Response{}, ctx.Err()
		case <-timer.C:
		}
	}
	if fail {
		return Response{}, errMockFailure
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal mock payload: %w", err)
	}
	return Response{Text: string(body), TokensUsed: tokens, Cost: 0.0001}, nil
}

type mockReaction struct {
	reaction  string
	comment   string
	sentiment int
}

var mockReactions = []mockReaction{
	{"comment", "Finally someone speaking sense! This is exactly what we need.", 7},
	{"comment", "I have to admit, this makes a lot of sense. Cautiously optimistic.", 4},
	{"like", "", 2},
	{"share", "", 5},
	{"comment", "This is what real leadership looks like. Keep it up!", 6},
	{"comment", "About time someone addressed this issue. You have my attention.", 3},
	{"comment", "Interesting perspective. Would like to see more details on implementation.", 1},
	{"comment", "Not sure I fully agree, but at least it's a concrete proposal.", 0},
	{"comment", "Show me the plan, not just the talking points. How are you going to do this?", -1},
	{"ignore", "", 0},
	{"comment", "Same old political promises. Wake me up when something actually changes.", -4},
	{"angry", "", -3},
	{"comment", "Hard disagree. This completely ignores the real issues facing working families.", -6},
	{"comment", "Another day, another politician trying to buy votes with empty promises.", -5},
	{"laugh", "", -2},
	{"comment", "This is out of touch with reality. Do you actually talk to regular people?", -7},
	{"comment", "I like the idea but I'm skeptical about execution. Politicians always overpromise.", 1},
	{"comment", "Better than what the other side is offering, I'll give you that.", 2},
	{"comment", "The numbers don't add up. How are you funding this?", -2},
	{"comment", "My family has been dealing with this issue for years. Good to see someone talking about it.", 5},
}

type mockNews struct {
	headline string
	issues   []string
}

var mockHeadlines = []mockNews{
	{"Economic Report Shows Mixed Results", []string{"economy"}},
	{"Healthcare Costs Continue to Rise", []string{"healthcare"}},
	{"Poll Shows Tight Race in Key States", []string{}},
	{"Climate Change Report Sparks Debate", []string{"climate"}},
	{"Immigration Policy Under Scrutiny", []string{"immigration"}},
}

type mockRival struct {
	content string
	issues  []string
}

var mockRivalPosts = []mockRival{
	{"My opponent talks a big game, but where are the results? Americans deserve better.", []string{"economy"}},
	{"While others make empty promises, I have a real plan for working families.", []string{"economy", "healthcare"}},
	{"Leadership means making tough decisions, not just popular ones.", []string{}},
	{"I've delivered results before and I'll do it again. That's the difference.", []string{}},
	{"The choice is clear: experience and results, or more of the same failed policies.", []string{}},
}
