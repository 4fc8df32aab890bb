package selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"campaign_feed/internal/domain"
)

type stubRNG struct {
	f float64
	n int
}

func (s stubRNG) Float64() float64 { return s.f }
func (s stubRNG) IntN(n int) int   { return min(s.n, n-1) }

func pool(n int) []domain.Persona {
	out := make([]domain.Persona, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Persona{
			ID:                   fmt.Sprintf("p%02d", i),
			EngagementLikelihood: float64(i%10) / 10,
			OpinionOfPlayer:      (i*29)%201 - 100,
			PoliticalLeaning:     (i*41)%201 - 100,
			PriorityIssues:       []domain.Issue{domain.AllIssues[i%10], domain.AllIssues[(i+3)%10]},
			LastResponseTick:     domain.NeverResponded,
		})
	}
	return out
}

func TestFatigue(t *testing.T) {
	cases := []struct {
		elapsed int
		want    float64
	}{
		{0, 0.8},
		{9, 0.8},
		{10, 1 - 10.0/60},
		{30, 0.5},
		{59, 1 - 59.0/60},
		{60, 0},
		{500, 0},
	}
	for _, tc := range cases {
		if got := Fatigue(tc.elapsed); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("fatigue(%d)=%v want=%v", tc.elapsed, got, tc.want)
		}
	}
}

func TestProbabilityPrefersPriorityIssue(t *testing.T) {
	post := domain.Post{Type: domain.PostTypePlayer, IssueTags: []domain.Issue{domain.IssueEconomy}}
	base := domain.Persona{
		EngagementLikelihood: 0.4,
		OpinionOfPlayer:      10,
		PoliticalLeaning:     35,
		LastResponseTick:     domain.NeverResponded,
	}
	with := base
	with.PriorityIssues = []domain.Issue{domain.IssueEconomy, domain.IssueHealthcare, domain.IssueTaxes}
	without := base
	without.PriorityIssues = []domain.Issue{domain.IssueClimate, domain.IssueHealthcare, domain.IssueTaxes}

	c := Context{CurrentTick: 100, PlayerPosition: 0}
	if pw, pwo := Probability(with, post, c), Probability(without, post, c); pw <= pwo {
		t.Fatalf("priority persona probability=%v not above %v", pw, pwo)
	}
}

func TestProbabilityTerms(t *testing.T) {
	p := domain.Persona{
		EngagementLikelihood: 0.5,
		OpinionOfPlayer:      -40,
		PoliticalLeaning:     10,
		LastResponseTick:     70,
	}
	post := domain.Post{Type: domain.PostTypePlayer}
	// 0.5*(0.4+0.6*0.5) + 0.25*0.4 = 0.45; fatigue at 30 ticks is 0.5 -> *0.75; diff 10 -> +0.1
	want := 0.45*0.75 + 0.1
	if got := Probability(p, post, Context{CurrentTick: 100, PlayerPosition: 0}); math.Abs(got-want) > 1e-9 {
		t.Fatalf("probability=%v want=%v", got, want)
	}

	post.Type = domain.PostTypeRival
	if got := Probability(p, post, Context{CurrentTick: 100}); math.Abs(got-0.45*0.75) > 1e-9 {
		t.Fatalf("rival post should not get the alignment bonus: %v", got)
	}
}

func TestProbabilityClamped(t *testing.T) {
	post := domain.Post{Type: domain.PostTypePlayer}
	hot := domain.Persona{EngagementLikelihood: 1, OpinionOfPlayer: 100, LastResponseTick: domain.NeverResponded}
	cold := domain.Persona{EngagementLikelihood: 0, PoliticalLeaning: 30, LastResponseTick: 0}
	c := Context{CurrentTick: 1}
	if got := Probability(hot, post, c); got != maxProbability {
		t.Fatalf("hot=%v want=%v", got, maxProbability)
	}
	if got := Probability(cold, post, c); got != minProbability {
		t.Fatalf("cold=%v want=%v", got, minProbability)
	}
}

func TestSelectCohortSizeWithinBounds(t *testing.T) {
	personas := pool(15)
	post := domain.Post{Type: domain.PostTypePlayer, IssueTags: []domain.Issue{domain.IssueEconomy}}
	cfg := Config{MinResponders: 5, MaxResponders: 10}
	for seed := uint64(1); seed <= 300; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed))
		got := Select(personas, post, Context{CurrentTick: int(seed)}, cfg, rng)
		if len(got) < cfg.MinResponders || len(got) > cfg.MaxResponders {
			t.Fatalf("seed=%d cohort size=%d outside [%d,%d]", seed, len(got), cfg.MinResponders, cfg.MaxResponders)
		}
		seen := map[string]bool{}
		for _, p := range got {
			if seen[p.ID] {
				t.Fatalf("seed=%d persona %s selected twice", seed, p.ID)
			}
			seen[p.ID] = true
		}
	}
}

func TestSelectTopsUpFromHighestRanked(t *testing.T) {
	personas := pool(12)
	post := domain.Post{Type: domain.PostTypeNews}
	c := Context{CurrentTick: 5}
	// every Bernoulli draw fails, so the cohort is the top of the ranking
	got := Select(personas, post, c, Config{MinResponders: 4, MaxResponders: 8}, stubRNG{f: 0.999, n: 2})
	if len(got) != 4 {
		t.Fatalf("cohort size=%d want=4", len(got))
	}
	ranked := Rank(personas, post, c)
	for i := range got {
		if got[i].ID != ranked[i].Persona.ID {
			t.Fatalf("top-up order=%v differs from ranking at %d", got, i)
		}
	}
}

func TestSelectStopsAtTarget(t *testing.T) {
	personas := pool(12)
	got := Select(personas, domain.Post{Type: domain.PostTypeNews}, Context{}, Config{MinResponders: 2, MaxResponders: 6}, stubRNG{f: 0, n: 1})
	if len(got) != 3 {
		t.Fatalf("cohort size=%d want=3", len(got))
	}
}

func TestDisplayDelayRanges(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < 500; i++ {
		if d := DisplayDelay(1, 0, 1, rng); d < 0 || d > 5 {
			t.Fatalf("wave 1 delay=%d", d)
		}
		if d := DisplayDelay(2, 0, 1, rng); d < 5 || d > 20 {
			t.Fatalf("wave 2 delay=%d", d)
		}
		if d := DisplayDelay(3, 4, 1, rng); d < 22 || d > 47 {
			t.Fatalf("wave 3 delay=%d", d)
		}
	}
	if got := DisplayDelay(2, 3, 1, stubRNG{f: 0.5}); got != 14 {
		t.Fatalf("delay=%d want=14", got)
	}
	if got := DisplayDelay(2, 3, 2, stubRNG{f: 0.5}); got != 28 {
		t.Fatalf("slowed delay=%d want=28", got)
	}
}
