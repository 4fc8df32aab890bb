package parser

import (
	"strings"
	"testing"

	"campaign_feed/internal/domain"
)

func TestParsePersona(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		reaction  domain.ReactionType
		comment   string
		sentiment int
	}{
		{
			name:      "comment",
			raw:       `{"reaction":"comment","comment":"Talk is cheap.","sentimentShift":-3}`,
			reaction:  domain.ReactionComment,
			comment:   "Talk is cheap.",
			sentiment: -3,
		},
		{
			name:      "fenced with prose",
			raw:       "Sure! ```json\n{\"reaction\":\"like\",\"comment\":\"ignored\",\"sentimentShift\":4}\n```",
			reaction:  domain.ReactionLike,
			sentiment: 4,
		},
		{
			name:      "share alias",
			raw:       `{"reaction":"share","comment":null,"sentimentShift":2}`,
			reaction:  domain.ReactionRetweet,
			sentiment: 2,
		},
		{
			name:      "unknown reaction becomes comment",
			raw:       `{"reaction":"cry","comment":"so sad","sentimentShift":"-2"}`,
			reaction:  domain.ReactionComment,
			comment:   "so sad",
			sentiment: -2,
		},
		{
			name:      "sentiment clamped",
			raw:       `{"reaction":"angry","sentimentShift":-45}`,
			reaction:  domain.ReactionAngry,
			sentiment: -10,
		},
		{
			name:      "huge positive sentiment",
			raw:       `{"reaction":"like","sentimentShift":1e300}`,
			reaction:  domain.ReactionLike,
			sentiment: 10,
		},
		{
			name:      "huge negative sentiment",
			raw:       `{"reaction":"like","sentimentShift":-1e300}`,
			reaction:  domain.ReactionLike,
			sentiment: -10,
		},
		{
			name:      "huge numeric string sentiment",
			raw:       `{"reaction":"like","sentimentShift":"9999999999999999999999"}`,
			reaction:  domain.ReactionLike,
			sentiment: 10,
		},
		{
			name:      "raw text fallback",
			raw:       "  honestly this is fine  ",
			reaction:  domain.ReactionComment,
			comment:   "honestly this is fine",
			sentiment: 0,
		},
		{
			name:      "broken json fallback",
			raw:       `{"reaction": "like",`,
			reaction:  domain.ReactionComment,
			comment:   `{"reaction": "like",`,
			sentiment: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePersona(tc.raw)
			if got.Reaction != tc.reaction {
				t.Fatalf("reaction=%q want=%q", got.Reaction, tc.reaction)
			}
			if got.SentimentShift != tc.sentiment {
				t.Fatalf("sentiment=%d want=%d", got.SentimentShift, tc.sentiment)
			}
			switch {
			case tc.comment == "" && got.Comment != nil:
				t.Fatalf("comment=%q want nil", *got.Comment)
			case tc.comment != "" && (got.Comment == nil || *got.Comment != tc.comment):
				t.Fatalf("comment=%v want=%q", got.Comment, tc.comment)
			}
		})
	}
}

func TestParsePersonaTruncatesComment(t *testing.T) {
	long := strings.Repeat("é", 400)
	got := ParsePersona(`{"reaction":"comment","comment":"` + long + `"}`)
	if got.Comment == nil || len([]rune(*got.Comment)) != domain.MaxPostChars {
		t.Fatalf("comment not truncated to %d runes", domain.MaxPostChars)
	}
}

func TestParseNews(t *testing.T) {
	got, ok := ParseNews(`{"headline":"Breaking: Jobs report beats expectations","description":"Payrolls rose.","affectedIssues":["economy","ECONOMY","weather","taxes","crime","education"],"issueImpact":{"economy":14,"bogus":3}}`)
	if !ok {
		t.Fatalf("expected news to parse")
	}
	if len(got.AffectedIssues) != 3 || got.AffectedIssues[0] != domain.IssueEconomy || got.AffectedIssues[1] != domain.IssueTaxes {
		t.Fatalf("issues=%v", got.AffectedIssues)
	}
	if got.IssueImpact[domain.IssueEconomy] != 10 || len(got.IssueImpact) != 1 {
		t.Fatalf("impact=%v", got.IssueImpact)
	}

	for _, raw := range []string{
		"no json here",
		`{"headline":"only a headline"}`,
		`{"description":"only a description"}`,
		`{"headline":`,
	} {
		if _, ok := ParseNews(raw); ok {
			t.Fatalf("expected %q to be dropped", raw)
		}
	}
}

func TestParseRival(t *testing.T) {
	got, ok := ParseRival(`{"content":"Results, not rhetoric.","issueTags":["economy","healthcare"]}`)
	if !ok || got.Content != "Results, not rhetoric." || len(got.IssueTags) != 2 {
		t.Fatalf("unexpected rival reply: %+v ok=%v", got, ok)
	}

	got, ok = ParseRival("Leadership means tough decisions.")
	if !ok || got.Content != "Leadership means tough decisions." || len(got.IssueTags) != 0 {
		t.Fatalf("raw fallback failed: %+v", got)
	}

	if _, ok := ParseRival("   "); ok {
		t.Fatalf("empty payload should not produce a post")
	}
}
