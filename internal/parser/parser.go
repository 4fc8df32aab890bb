package parser

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"campaign_feed/internal/domain"
)

const (
	maxHeadlineChars    = 100
	maxDescriptionChars = 300
)

type PersonaReply struct {
	Reaction       domain.ReactionType
	Comment        *string
	SentimentShift int
}

type NewsReply struct {
	Headline       string
	Description    string
	AffectedIssues []domain.Issue
	IssueImpact    map[domain.Issue]int
}

type RivalReply struct {
	Content   string
	IssueTags []domain.Issue
}

// ParsePersona never fails: unparseable text becomes a neutral comment.
func ParsePersona(raw string) PersonaReply {
	obj, ok := extractObject(raw)
	if !ok {
		return rawComment(raw)
	}

	reaction, ok := domain.ParseReactionType(stringField(obj, "reaction"))
	if !ok {
		reaction = domain.ReactionComment
	}
	reply := PersonaReply{
		Reaction:       reaction,
		SentimentShift: domain.ClampSentiment(intField(obj, "sentimentShift", "sentiment_shift")),
	}
	if reaction == domain.ReactionComment {
		if text := strings.TrimSpace(stringField(obj, "comment")); text != "" {
			text = truncate(text, domain.MaxPostChars)
			reply.Comment = &text
		}
	}
	return reply
}

// ParseNews reports false when the payload has no usable headline and
// description; the event is dropped in that case.
func ParseNews(raw string) (NewsReply, bool) {
	obj, ok := extractObject(raw)
	if !ok {
		return NewsReply{}, false
	}
	headline := strings.TrimSpace(stringField(obj, "headline"))
	description := strings.TrimSpace(stringField(obj, "description"))
	if headline == "" || description == "" {
		return NewsReply{}, false
	}

	reply := NewsReply{
		Headline:       truncate(headline, maxHeadlineChars),
		Description:    truncate(description, maxDescriptionChars),
		AffectedIssues: domain.NormalizeIssues(stringList(obj, "affectedIssues", "affected_issues")),
	}
	if impact, ok := obj["issueImpact"].(map[string]any); ok {
		for k, v := range impact {
			issue := domain.Issue(strings.ToLower(strings.TrimSpace(k)))
			n, ok := toInt(v)
			if !issue.Valid() || !ok {
				continue
			}
			if reply.IssueImpact == nil {
				reply.IssueImpact = make(map[domain.Issue]int)
			}
			reply.IssueImpact[issue] = domain.ClampSentiment(n)
		}
	}
	return reply, true
}

// ParseRival falls back to the raw text as the post body.
func ParseRival(raw string) (RivalReply, bool) {
	obj, ok := extractObject(raw)
	if !ok {
		content := truncate(strings.TrimSpace(raw), domain.MaxPostChars)
		return RivalReply{Content: content}, content != ""
	}
	content := strings.TrimSpace(stringField(obj, "content"))
	if content == "" {
		content = strings.TrimSpace(raw)
	}
	content = truncate(content, domain.MaxPostChars)
	return RivalReply{
		Content:   content,
		IssueTags: domain.NormalizeIssues(stringList(obj, "issueTags", "issue_tags")),
	}, content != ""
}

func rawComment(raw string) PersonaReply {
	reply := PersonaReply{Reaction: domain.ReactionComment}
	if text := truncate(strings.TrimSpace(raw), domain.MaxPostChars); text != "" {
		reply.Comment = &text
	}
	return reply
}

// extractObject takes the span from the first '{' to the last '}' so prose or
// code fences around the payload are ignored.
func extractObject(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func intField(obj map[string]any, keys ...string) int {
	for _, k := range keys {
		if n, ok := toInt(obj[k]); ok {
			return n
		}
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return roundInt(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return roundInt(f), true
	default:
		return 0, false
	}
}

// roundInt keeps the sign of values beyond the int32 range.
func roundInt(f float64) int {
	return int(math.Round(math.Max(math.MinInt32, math.Min(math.MaxInt32, f))))
}

func stringList(obj map[string]any, keys ...string) []string {
	for _, k := range keys {
		items, ok := obj[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
