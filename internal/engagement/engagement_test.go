package engagement

import (
	"fmt"
	"testing"

	"campaign_feed/internal/domain"
)

type fixedRNG float64

func (f fixedRNG) Float64() float64 { return float64(f) }

func TestSeedMatchesMultiplicativeStringHash(t *testing.T) {
	cases := map[string]int64{
		"":                   0,
		"abc":                96354,
		"polygenelubricants": 2147483648,
	}
	for in, want := range cases {
		if got := seed(in); got != want {
			t.Fatalf("seed(%q)=%d want=%d", in, got, want)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	p := domain.Persona{ID: "maya-chen", PoliticalLeaning: -40, PriorityIssues: []domain.Issue{domain.IssueClimate}, OpinionOfPlayer: 20}
	post := domain.Post{ID: "post-1", IssueTags: []domain.Issue{domain.IssueClimate}}
	stance := Stance{Position: -30}
	first := Classify(p, post, stance)
	for i := 0; i < 10; i++ {
		if got := Classify(p, post, stance); got != first {
			t.Fatalf("classification changed: %q then %q", first, got)
		}
	}
}

func TestClassifyBands(t *testing.T) {
	post := domain.Post{ID: "p"}
	for i := 0; i < 200; i++ {
		p := domain.Persona{
			ID:               fmt.Sprintf("persona-%d", i),
			PoliticalLeaning: (i*37)%201 - 100,
			OpinionOfPlayer:  (i*53)%201 - 100,
		}
		threshold := float64(seed(p.ID+"-"+post.ID)%100) - 50
		if threshold < -50 || threshold > 49 {
			t.Fatalf("threshold %v out of range", threshold)
		}
		dist := float64(p.PoliticalLeaning)
		if dist < 0 {
			dist = -dist
		}
		score := (50-dist/2)*0.3 + (0.3*100-50)*0.3 + float64(p.OpinionOfPlayer)*0.4

		got := Classify(p, post, Stance{})
		var want domain.EngagementType
		switch {
		case score > threshold+25:
			want = domain.EngagementLike
		case score < threshold-25:
			want = domain.EngagementDislike
		default:
			// untagged overlap is 0.3, which never qualifies for a retweet
			want = domain.EngagementNone
		}
		if got != want {
			t.Fatalf("persona %s score=%v threshold=%v got=%q want=%q", p.ID, score, threshold, got, want)
		}
	}
}

func TestStanceSelectsOpinionSubject(t *testing.T) {
	post := domain.Post{ID: "rival-post", IssueTags: []domain.Issue{domain.IssueTaxes}}
	p := domain.Persona{ID: "x", PriorityIssues: []domain.Issue{domain.IssueTaxes}, OpinionOfPlayer: 100, OpinionOfRival: -100}
	if Classify(p, post, Stance{Rival: true}) == domain.EngagementLike {
		t.Fatalf("a persona who despises the rival should not like the rival's post")
	}
	if Classify(p, post, Stance{}) != domain.EngagementLike {
		t.Fatalf("a persona who adores the player should like the player's aligned post")
	}
}

func TestEvaluateSkipsExcluded(t *testing.T) {
	personas := []domain.Persona{
		{ID: "a", OpinionOfPlayer: 100, PriorityIssues: []domain.Issue{domain.IssueEconomy}},
		{ID: "b", OpinionOfPlayer: 100, PriorityIssues: []domain.Issue{domain.IssueEconomy}},
	}
	post := domain.Post{ID: "p", IssueTags: []domain.Issue{domain.IssueEconomy}}
	tally := Evaluate(personas, map[string]bool{"a": true}, post, Stance{})
	for _, list := range [][]string{tally.Likes, tally.Retweets, tally.Dislikes} {
		for _, id := range list {
			if id == "a" {
				t.Fatalf("excluded persona was classified")
			}
		}
	}
}

func TestScale(t *testing.T) {
	segments := map[string]int{"a": 100000, "b": 0, "c": 250000}
	if got := Scale(nil, segments, 1, fixedRNG(0.5)); got != 0 {
		t.Fatalf("empty scale=%d want=0", got)
	}
	if got := Scale([]string{"a", "b"}, segments, 1, fixedRNG(0)); got != 2000 {
		t.Fatalf("min-rate scale=%d want=2000", got)
	}
	if got := Scale([]string{"a", "c"}, segments, 2, fixedRNG(1)); got != 21000 {
		t.Fatalf("max-rate viral scale=%d want=21000", got)
	}
}

func TestComputeCountsMatchTally(t *testing.T) {
	personas := []domain.Persona{
		{ID: "a", OpinionOfPlayer: 100, SegmentSize: 100000},
		{ID: "b", OpinionOfPlayer: -100, PoliticalLeaning: 100, SegmentSize: 100000},
		{ID: "c", OpinionOfPlayer: 0, SegmentSize: 100000},
	}
	post := domain.Post{ID: "p"}
	stance := Stance{Position: -100}
	tally := Evaluate(personas, nil, post, stance)
	got := Compute(personas, nil, post, stance, 1, fixedRNG(0))
	if got.Likes != len(tally.Likes) || got.Retweets != len(tally.Retweets) || got.Dislikes != len(tally.Dislikes) {
		t.Fatalf("compute=%+v tally=%+v", got, tally)
	}
	if got.DisplayedLikes != got.Likes*1000 || got.DisplayedDislikes != got.Dislikes*1000 {
		t.Fatalf("displayed counts not scaled by segment: %+v", got)
	}
}
