package engagement

import (
	"math"
	"unicode/utf16"

	"campaign_feed/internal/domain"
)

const defaultSegmentSize = 100000

type RNG interface {
	Float64() float64
}

// Stance is the author position and reputation a post is judged against.
// Rival selects opinionOfRival instead of opinionOfPlayer.
type Stance struct {
	Position int
	Rival    bool
}

func (s Stance) opinion(p domain.Persona) int {
	if s.Rival {
		return p.OpinionOfRival
	}
	return p.OpinionOfPlayer
}

type Tally struct {
	Likes    []string
	Retweets []string
	Dislikes []string
}

// Classify is a pure function of the persona, the post and the stance.
func Classify(p domain.Persona, post domain.Post, stance Stance) domain.EngagementType {
	threshold := float64(seed(p.ID+"-"+post.ID)%100) - 50

	distance := math.Abs(float64(p.PoliticalLeaning - stance.Position))
	overlap := topicOverlap(p, post)
	score := (50-distance/2)*0.3 + (overlap*100-50)*0.3 + float64(stance.opinion(p))*0.4

	switch {
	case score > threshold+25:
		return domain.EngagementLike
	case score > threshold+10 && overlap > 0.3:
		return domain.EngagementRetweet
	case score < threshold-25:
		return domain.EngagementDislike
	default:
		return domain.EngagementNone
	}
}

// Evaluate classifies every persona not in exclude.
func Evaluate(personas []domain.Persona, exclude map[string]bool, post domain.Post, stance Stance) Tally {
	var t Tally
	for _, p := range personas {
		if exclude[p.ID] {
			continue
		}
		switch Classify(p, post, stance) {
		case domain.EngagementLike:
			t.Likes = append(t.Likes, p.ID)
		case domain.EngagementRetweet:
			t.Retweets = append(t.Retweets, p.ID)
		case domain.EngagementDislike:
			t.Dislikes = append(t.Dislikes, p.ID)
		case domain.EngagementNone:
		}
	}
	return t
}

// Scale converts agent ids into a displayed count: the summed segment sizes
// times viral times a random 1-3% engagement rate.
func Scale(ids []string, segments map[string]int, viral float64, rng RNG) int {
	if len(ids) == 0 {
		return 0
	}
	base := 0
	for _, id := range ids {
		size := segments[id]
		if size <= 0 {
			size = defaultSegmentSize
		}
		base += size
	}
	rate := 0.01 + rng.Float64()*0.02
	return int(math.Round(float64(base) * viral * rate))
}

// Compute produces both raw and display counts for a post.
func Compute(personas []domain.Persona, exclude map[string]bool, post domain.Post, stance Stance, viral float64, rng RNG) domain.Engagement {
	t := Evaluate(personas, exclude, post, stance)
	segments := make(map[string]int, len(personas))
	for _, p := range personas {
		segments[p.ID] = p.SegmentSize
	}
	return domain.Engagement{
		Likes:             len(t.Likes),
		Retweets:          len(t.Retweets),
		Dislikes:          len(t.Dislikes),
		DisplayedLikes:    Scale(t.Likes, segments, viral, rng),
		DisplayedRetweets: Scale(t.Retweets, segments, viral, rng),
		DisplayedDislikes: Scale(t.Dislikes, segments, viral, rng),
	}
}

func topicOverlap(p domain.Persona, post domain.Post) float64 {
	if len(post.IssueTags) == 0 {
		return 0.3
	}
	n := 0
	for _, tag := range post.IssueTags {
		if p.HasPriority(tag) {
			n++
		}
	}
	return float64(n) / float64(len(post.IssueTags))
}

// seed is a 32-bit multiplicative string hash over UTF-16 code units,
// returned as a non-negative value.
func seed(s string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}
