package prompts

import (
	"fmt"
	"strings"

	"campaign_feed/internal/domain"
)

// Subject is the candidate a post is about, as seen by a reacting persona.
type Subject struct {
	Name    string
	Party   string
	Opinion int
}

type NewsContext struct {
	Player             domain.Player
	Rival              domain.Rival
	PlayerFavorability int
	RivalFavorability  int
	RecentPosts        []domain.Post
	HotIssues          []domain.Issue
}

type RivalContext struct {
	Player             domain.Player
	Rival              domain.Rival
	PlayerFavorability int
	RivalFavorability  int
	RecentPlayerPosts  []domain.Post
	RecentHeadlines    []string
}

func PersonaResponse(p domain.Persona, post domain.Post, subject Subject) string {
	var b strings.Builder
	b.WriteString("You are simulating a social media user responding to a political post. ")
	b.WriteString("Stay completely in character and respond the way this person actually would.\n\n")

	b.WriteString("Your character:\n")
	fmt.Fprintf(&b, "- Name: %s, %s age group\n", p.Name, p.Age)
	fmt.Fprintf(&b, "- Occupation: %s from %s\n", p.Occupation, p.Location)
	fmt.Fprintf(&b, "- Political leaning: %s\n", domain.DescribeLeaning(p.PoliticalLeaning))
	fmt.Fprintf(&b, "- Issues you care most about: %s\n", issueLabels(p.PriorityIssues))
	fmt.Fprintf(&b, "- Personality: %s\n", strings.Join(p.PersonalityTraits, ", "))
	fmt.Fprintf(&b, "- How you write: %s\n", strings.Join(voiceNotes(p), "; "))
	fmt.Fprintf(&b, "- Current opinion of this candidate: %s\n", domain.DescribeOpinion(subject.Opinion))
	if len(p.Catchphrases) > 0 {
		fmt.Fprintf(&b, "You often use phrases like: %s\n", quoteAll(p.Catchphrases, ", "))
	}
	if len(p.ExamplePosts) > 0 {
		b.WriteString("Examples of how you write:\n")
		for _, ex := range p.ExamplePosts {
			fmt.Fprintf(&b, "- %q\n", ex)
		}
	}

	b.WriteString("\n")
	switch post.Type {
	case domain.PostTypeNews:
		fmt.Fprintf(&b, "A news outlet just posted:\n%q\n", post.Content)
	case domain.PostTypePlayer, domain.PostTypeRival:
		fmt.Fprintf(&b, "The candidate (%s, %s) just posted:\n%q\n", subject.Name, subject.Party, post.Content)
	}
	if len(post.IssueTags) > 0 {
		fmt.Fprintf(&b, "Topics tagged: %s\n", issueLabels(post.IssueTags))
	}

	fmt.Fprintf(&b, "\nRespond as %s would. Your response must include:\n", p.Name)
	b.WriteString("- A reaction type: one of \"comment\", \"like\", \"angry\", \"laugh\", \"share\", or \"ignore\"\n")
	b.WriteString("- If comment: the comment text (1-3 sentences, casual social media style)\n")
	b.WriteString("- A sentiment score from -10 to +10 for how this changed your opinion of the candidate\n\n")
	b.WriteString("Respond ONLY with this JSON:\n")
	b.WriteString("{\"reaction\": \"comment\", \"comment\": \"your comment text here\", \"sentimentShift\": 3}\n")
	b.WriteString("If your reaction is not \"comment\", set comment to null.")
	return b.String()
}

func News(c NewsContext) string {
	var b strings.Builder
	b.WriteString("You are a news headline generator for a presidential campaign simulation. ")
	b.WriteString("Generate realistic, politically neutral news that affects the campaign.\n\n")
	b.WriteString("Current game state:\n")
	fmt.Fprintf(&b, "- Player: %s (%s), %d%% favorability\n", c.Player.CandidateName, c.Player.Party, c.PlayerFavorability)
	fmt.Fprintf(&b, "- Rival: %s (%s), %d%% favorability\n\n", c.Rival.Name, c.Rival.Party, c.RivalFavorability)

	b.WriteString("Recent player posts:\n")
	b.WriteString(recentContent(c.RecentPosts, domain.PostTypePlayer, 3))
	b.WriteString("\nRecent rival posts:\n")
	b.WriteString(recentContent(c.RecentPosts, domain.PostTypeRival, 3))

	hot := issueLabels(c.HotIssues)
	if hot == "" {
		hot = "Various"
	}
	fmt.Fprintf(&b, "\nHot issues: %s\n\n", hot)
	b.WriteString("Generate a headline and a 2-3 sentence description. Sometimes cover the candidates directly, ")
	b.WriteString("sometimes external events that move certain issues. Do not favor either candidate.\n\n")
	b.WriteString("Respond in this exact JSON format:\n")
	b.WriteString("{\"headline\": \"Breaking: Short headline here\", \"description\": \"2-3 sentences.\", ")
	b.WriteString("\"affectedIssues\": [\"economy\", \"healthcare\"], \"issueImpact\": {\"economy\": 5, \"healthcare\": -3}}\n")
	b.WriteString("Issue impact numbers range from -10 to +10.")
	return b.String()
}

func Rival(c RivalContext) string {
	standing := "tied in polls"
	switch {
	case c.RivalFavorability > c.PlayerFavorability:
		standing = "currently leading in polls"
	case c.RivalFavorability < c.PlayerFavorability:
		standing = "currently trailing in polls"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are simulating %s, a %s presidential candidate. Generate a social media post for their campaign.\n\n", c.Rival.Name, c.Rival.Party)
	b.WriteString("Character profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n- Party: %s\n", c.Rival.Name, c.Rival.Party)
	b.WriteString("- Style: calculated, polished, occasionally attacks opponents\n")
	fmt.Fprintf(&b, "- Currently: %s\n\n", standing)

	fmt.Fprintf(&b, "Opponent (%s, %s) recent posts:\n", c.Player.CandidateName, c.Player.Party)
	b.WriteString(recentContent(c.RecentPlayerPosts, domain.PostTypePlayer, 3))
	news := "No recent news"
	if len(c.RecentHeadlines) > 0 {
		news = strings.Join(c.RecentHeadlines, "; ")
	}
	fmt.Fprintf(&b, "\nRecent news: %s\n\n", news)
	b.WriteString("Write 1-2 sentences that sound like a professional politician. You may respond to the news ")
	b.WriteString("or contrast with the opponent.\n\n")
	b.WriteString("Respond in this exact JSON format:\n")
	b.WriteString("{\"content\": \"Your campaign post here\", \"issueTags\": [\"economy\", \"healthcare\"]}\n")
	b.WriteString("Include 1-3 relevant issue tags.")
	return b.String()
}

func voiceNotes(p domain.Persona) []string {
	notes := make([]string, 0, 4)
	switch p.VocabularyLevel {
	case "simple":
		notes = append(notes, "uses simple, everyday language")
	case "sophisticated":
		notes = append(notes, "uses educated, nuanced vocabulary")
	}
	switch p.Formality {
	case "casual":
		notes = append(notes, "writes casually, like texting")
	case "formal":
		notes = append(notes, "writes formally and properly")
	}
	if p.UsesSlang {
		notes = append(notes, "uses slang and abbreviations")
	}
	if p.UsesEmoji {
		notes = append(notes, "uses emojis occasionally")
	}
	return notes
}

func recentContent(posts []domain.Post, kind domain.PostType, limit int) string {
	var b strings.Builder
	n := 0
	for _, p := range posts {
		if p.Type != kind {
			continue
		}
		fmt.Fprintf(&b, "%q\n", p.Content)
		n++
		if n == limit {
			break
		}
	}
	if n == 0 {
		return "None yet\n"
	}
	return b.String()
}

func issueLabels(issues []domain.Issue) string {
	labels := make([]string, 0, len(issues))
	for _, i := range issues {
		labels = append(labels, i.Label())
	}
	return strings.Join(labels, ", ")
}

func quoteAll(items []string, sep string) string {
	quoted := make([]string, 0, len(items))
	for _, s := range items {
		quoted = append(quoted, fmt.Sprintf("%q", s))
	}
	return strings.Join(quoted, sep)
}
