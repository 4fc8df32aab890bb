package feed

import (
	"errors"
	"fmt"
	"testing"

	"campaign_feed/internal/domain"
)

func testPersonas() []domain.Persona {
	return []domain.Persona{
		{ID: "a", OpinionOfPlayer: 95, OpinionOfRival: -95, ResponseWave: 1, LastResponseTick: domain.NeverResponded},
		{ID: "b", OpinionOfPlayer: -20, OpinionOfRival: 40, ResponseWave: 2, LastResponseTick: domain.NeverResponded},
	}
}

func started(t *testing.T) (*State, uint64) {
	t.Helper()
	s := New(Config{})
	session := s.Begin(domain.Player{CandidateName: "Alex Rivera", Party: "Democrat"}, domain.Rival{Name: "Patricia Morgan"}, testPersonas())
	return s, session
}

func TestApplyReactionClampsOpinionBySubject(t *testing.T) {
	s, session := started(t)
	if err := s.AddPost(session, domain.Post{ID: "p1", Type: domain.PostTypePlayer}); err != nil {
		t.Fatalf("add post: %v", err)
	}
	if err := s.AddPost(session, domain.Post{ID: "r1", Type: domain.PostTypeRival}); err != nil {
		t.Fatalf("add post: %v", err)
	}
	for i := 0; i < 5; i++ {
		s.Advance()
	}

	r, err := s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: "a", ReactionType: domain.ReactionLike, SentimentShift: 25}, 3)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if r.SentimentShift != 10 || r.DisplayedAt != 8 || r.IsDisplayed {
		t.Fatalf("unexpected reaction: %+v", r)
	}
	if _, err := s.ApplyReaction(session, "r1", domain.PostReaction{PersonaID: "a", ReactionType: domain.ReactionAngry, SentimentShift: -10}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}

	a, _ := s.Persona("a")
	if a.OpinionOfPlayer != 100 {
		t.Fatalf("opinion of player=%d want=100", a.OpinionOfPlayer)
	}
	if a.OpinionOfRival != -100 {
		t.Fatalf("opinion of rival=%d want=-100", a.OpinionOfRival)
	}
	if a.LastResponseTick != 5 {
		t.Fatalf("last response tick=%d want=5", a.LastResponseTick)
	}
}

func TestApplyReactionKeepsCompletionOrder(t *testing.T) {
	s, session := started(t)
	_ = s.AddPost(session, domain.Post{ID: "p1", Type: domain.PostTypeNews})
	for _, id := range []string{"b", "a"} {
		if _, err := s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: id, ReactionType: domain.ReactionLaugh}, 0); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	post, _ := s.Post("p1")
	if len(post.Reactions) != 2 || post.Reactions[0].PersonaID != "b" || post.Reactions[1].PersonaID != "a" {
		t.Fatalf("reaction order=%+v", post.Reactions)
	}
}

func TestApplyReactionDropsCommentOnNonComment(t *testing.T) {
	s, session := started(t)
	_ = s.AddPost(session, domain.Post{ID: "p1", Type: domain.PostTypePlayer})
	text := "nice"
	r, _ := s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: "a", ReactionType: domain.ReactionLike, Comment: &text}, 0)
	if r.Comment != nil {
		t.Fatalf("like kept comment %q", *r.Comment)
	}
}

func TestStaleSessionRejected(t *testing.T) {
	s, session := started(t)
	_ = s.AddPost(session, domain.Post{ID: "p1", Type: domain.PostTypePlayer})
	s.Clear()
	if _, err := s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: "a", SentimentShift: 5}, 0); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("err=%v want ErrStaleSession", err)
	}
	if err := s.AddPost(session, domain.Post{ID: "p2"}); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("err=%v want ErrStaleSession", err)
	}
	if s.Started() || len(s.Posts(0)) != 0 {
		t.Fatalf("clear left state behind")
	}
}

func TestRevealAtOrAfterDisplayTick(t *testing.T) {
	s, session := started(t)
	_ = s.AddPost(session, domain.Post{ID: "p1", Type: domain.PostTypePlayer})
	_, _ = s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: "a", ReactionType: domain.ReactionLike}, 3)
	_, _ = s.ApplyReaction(session, "p1", domain.PostReaction{PersonaID: "b", ReactionType: domain.ReactionLike}, 1)

	var revealedAt []int
	for tick := 0; tick <= 5; tick++ {
		for _, r := range s.Reveal(tick) {
			if r.Reaction.DisplayedAt > tick {
				t.Fatalf("reaction due at %d revealed at %d", r.Reaction.DisplayedAt, tick)
			}
			revealedAt = append(revealedAt, tick)
		}
		if again := s.Reveal(tick); len(again) != 0 {
			t.Fatalf("reveal not idempotent at tick %d", tick)
		}
	}
	if fmt.Sprint(revealedAt) != "[1 3]" {
		t.Fatalf("revealed at=%v want=[1 3]", revealedAt)
	}
}

func TestHistoryCaps(t *testing.T) {
	s := New(Config{PostHistory: 3, NewsHistory: 2})
	session := s.Begin(domain.Player{}, domain.Rival{}, nil)
	for i := 0; i < 5; i++ {
		_ = s.AddPost(session, domain.Post{ID: fmt.Sprint(i), Type: domain.PostTypePlayer})
		_ = s.AddNews(session, domain.NewsItem{ID: fmt.Sprint(i)})
	}
	posts := s.Posts(0)
	if len(posts) != 3 || posts[0].ID != "4" {
		t.Fatalf("posts=%v", posts)
	}
	if news := s.News(0); len(news) != 2 || news[0].ID != "4" {
		t.Fatalf("news=%v", news)
	}
	if got := s.Posts(1); len(got) != 1 {
		t.Fatalf("limit ignored: %d", len(got))
	}
}

func TestFavorability(t *testing.T) {
	empty := New(Config{})
	if p, r := empty.Favorability(); p != 50 || r != 50 {
		t.Fatalf("empty favorability=%d,%d", p, r)
	}
	s, _ := started(t)
	// player avg 37.5 -> 68.75 -> 69; rival avg -27.5 -> 36.25 -> 36
	if p, r := s.Favorability(); p != 69 || r != 36 {
		t.Fatalf("favorability=%d,%d want=69,36", p, r)
	}
}

func TestHotIssues(t *testing.T) {
	s, session := started(t)
	tags := [][]domain.Issue{
		{domain.IssueEconomy, domain.IssueTaxes},
		{domain.IssueEconomy},
		{domain.IssueClimate, domain.IssueTaxes},
		{domain.IssueCrime, domain.IssueEconomy},
	}
	for i, tt := range tags {
		_ = s.AddPost(session, domain.Post{ID: fmt.Sprint(i), Type: domain.PostTypePlayer, IssueTags: tt})
	}
	got := s.HotIssues()
	if len(got) != 3 || got[0] != domain.IssueEconomy || got[1] != domain.IssueTaxes {
		t.Fatalf("hot issues=%v", got)
	}
}

func TestSnapshotRestoreClamps(t *testing.T) {
	s, session := started(t)
	for i := 0; i < 60; i++ {
		_ = s.AddPost(session, domain.Post{ID: fmt.Sprint(i), Type: domain.PostTypePlayer, Timestamp: i})
	}
	_, _ = s.ApplyReaction(session, "59", domain.PostReaction{PersonaID: "a", ReactionType: domain.ReactionLike}, 0)
	s.Reveal(100)
	s.RecordUsage(120, 0.25)

	snap := s.Snapshot()
	if len(snap.Posts) != 50 {
		t.Fatalf("snapshot posts=%d want=50", len(snap.Posts))
	}
	snap.Personas[0].OpinionOfPlayer = 400
	snap.Posts[0].IsProcessing = true
	snap.Posts[1].Reactions = []domain.PostReaction{{PersonaID: "b", SentimentShift: -40, DisplayedAt: 0}}
	snap.Posts = append(snap.Posts, domain.Post{ID: "bogus", Type: "unknown"})

	restored := New(Config{})
	restored.Restore(snap)
	if !restored.Started() {
		t.Fatalf("restored session not started")
	}
	a, _ := restored.Persona("a")
	if a.OpinionOfPlayer != 100 {
		t.Fatalf("restored opinion=%d want=100", a.OpinionOfPlayer)
	}
	posts := restored.Posts(0)
	if len(posts) != 50 {
		t.Fatalf("restored posts=%d", len(posts))
	}
	if posts[0].IsProcessing || !posts[0].Reactions[0].IsDisplayed {
		t.Fatalf("restored flags wrong: %+v", posts[0])
	}
	r := posts[1].Reactions[0]
	if r.SentimentShift != -10 || r.DisplayedAt != posts[1].Timestamp {
		t.Fatalf("restored reaction=%+v", r)
	}
	if u := restored.Usage(); u.TotalTokens != 120 {
		t.Fatalf("usage=%+v", u)
	}
}
