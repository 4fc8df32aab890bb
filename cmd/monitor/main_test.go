package main

import (
	"strings"
	"testing"

	"campaign_feed/internal/domain"
)

func TestSplitTags(t *testing.T) {
	cases := []struct {
		in          string
		wantContent string
		wantTags    []string
	}{
		{in: "Cut taxes now #taxes #Economy", wantContent: "Cut taxes now", wantTags: []string{"taxes", "economy"}},
		{in: "We're #1 in jobs", wantContent: "We're #1 in jobs"},
		{in: "   ", wantContent: ""},
	}
	for _, tc := range cases {
		content, tags := splitTags(tc.in)
		if content != tc.wantContent || strings.Join(tags, ",") != strings.Join(tc.wantTags, ",") {
			t.Fatalf("splitTags(%q)=%q,%v want=%q,%v", tc.in, content, tags, tc.wantContent, tc.wantTags)
		}
	}
}

func TestRenderReactionsHidesPending(t *testing.T) {
	comment := "Finally someone said it"
	post := &domain.Post{
		Author:  domain.Author{Name: "Alex Rivera"},
		Content: "Healthcare for all.",
		Reactions: []domain.PostReaction{
			{PersonaID: "maria", ReactionType: domain.ReactionComment, Comment: &comment, SentimentShift: 3, IsDisplayed: true},
			{PersonaID: "bob", ReactionType: domain.ReactionAngry, SentimentShift: -4},
		},
	}
	out := renderReactions(post, []domain.Persona{{ID: "maria", Name: "Maria Gonzalez"}})
	if !strings.Contains(out, "Maria Gonzalez (+3)") || !strings.Contains(out, comment) {
		t.Fatalf("revealed reaction missing:\n%s", out)
	}
	if strings.Contains(out, "bob") || !strings.Contains(out, "1 reaction(s) still arriving") {
		t.Fatalf("pending reaction leaked:\n%s", out)
	}
}
