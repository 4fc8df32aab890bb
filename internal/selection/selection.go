package selection

import (
	"math"
	"sort"

	"campaign_feed/internal/domain"
)

const (
	minProbability = 0.05
	maxProbability = 0.95
	fatigueWindow  = 60
)

type RNG interface {
	Float64() float64
	IntN(n int) int
}

type Config struct {
	MinResponders int
	MaxResponders int
}

// Context carries the values captured at selection time.
type Context struct {
	CurrentTick    int
	PlayerPosition int
}

type Candidate struct {
	Persona     domain.Persona
	Probability float64
}

// Fatigue is 0.8 right after a reaction and decays to 0 over sixty ticks.
func Fatigue(elapsed int) float64 {
	switch {
	case elapsed >= fatigueWindow:
		return 0
	case elapsed < 10:
		return 0.8
	default:
		return math.Max(0, 1-float64(elapsed)/fatigueWindow)
	}
}

func TopicRelevance(p domain.Persona, post domain.Post) float64 {
	if len(post.IssueTags) == 0 {
		return 0.5
	}
	n := 0
	for _, tag := range post.IssueTags {
		if p.HasPriority(tag) {
			n++
		}
	}
	return float64(n) / float64(len(post.IssueTags))
}

// Probability is the chance that p comments on post.
func Probability(p domain.Persona, post domain.Post, c Context) float64 {
	prob := p.EngagementLikelihood
	prob *= 0.4 + 0.6*TopicRelevance(p, post)
	prob += 0.25 * math.Abs(float64(p.OpinionOfPlayer)) / 100
	prob *= 1 - 0.5*Fatigue(c.CurrentTick-p.LastResponseTick)

	switch post.Type {
	case domain.PostTypePlayer:
		diff := math.Abs(float64(p.PoliticalLeaning - c.PlayerPosition))
		if diff > 50 || diff < 20 {
			prob += 0.1
		}
	case domain.PostTypeRival, domain.PostTypeNews:
	}
	return math.Min(maxProbability, math.Max(minProbability, prob))
}

// Rank scores every persona and orders them by probability, highest first.
// Ties keep roster order.
func Rank(personas []domain.Persona, post domain.Post, c Context) []Candidate {
	out := make([]Candidate, 0, len(personas))
	for _, p := range personas {
		out = append(out, Candidate{Persona: p, Probability: Probability(p, post, c)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}

// Select picks the commenting cohort. A target size is drawn from
// [MinResponders, MaxResponders]; each ranked persona is accepted with its own
// probability until the target is met, then the highest-ranked leftovers fill
// the cohort up to MinResponders.
func Select(personas []domain.Persona, post domain.Post, c Context, cfg Config, rng RNG) []domain.Persona {
	lo, hi := cfg.MinResponders, cfg.MaxResponders
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	ranked := Rank(personas, post, c)
	target := lo + rng.IntN(hi-lo+1)

	chosen := make([]domain.Persona, 0, target)
	taken := make([]bool, len(ranked))
	for i, cand := range ranked {
		if len(chosen) >= target {
			break
		}
		if rng.Float64() < cand.Probability {
			chosen = append(chosen, cand.Persona)
			taken[i] = true
		}
	}
	for i, cand := range ranked {
		if len(chosen) >= lo {
			break
		}
		if !taken[i] {
			chosen = append(chosen, cand.Persona)
		}
	}
	return chosen
}

// DisplayDelay is the number of ticks between a reaction's arrival and its
// reveal, bucketed by response wave and spread by cohort position.
func DisplayDelay(wave, index int, speed float64, rng RNG) int {
	var base, variance float64
	switch wave {
	case 1:
		base, variance = 0, 5
	case 2:
		base, variance = 5, 15
	default:
		base, variance = 20, 25
	}
	if speed <= 0 {
		speed = 1
	}
	delay := (base + rng.Float64()*variance + float64(index)*0.5) * speed
	return max(0, int(math.Round(delay)))
}
