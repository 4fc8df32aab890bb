package domain

import (
	"strings"
	"time"
)

const (
	MinOpinion   = -100
	MaxOpinion   = 100
	MinSentiment = -10
	MaxSentiment = 10
	MaxIssueTags = 3
	MaxPostChars = 280

	// NeverResponded marks a persona that has not produced a commentary
	// reaction in the current session.
	NeverResponded = -1 << 20
)

type Issue string

const (
	IssueEconomy       Issue = "economy"
	IssueHealthcare    Issue = "healthcare"
	IssueImmigration   Issue = "immigration"
	IssueClimate       Issue = "climate"
	IssueEducation     Issue = "education"
	IssueCrime         Issue = "crime"
	IssueForeignPolicy Issue = "foreign_policy"
	IssueGunRights     Issue = "gun_rights"
	IssueAbortion      Issue = "abortion"
	IssueTaxes         Issue = "taxes"
)

var AllIssues = []Issue{
	IssueEconomy,
	IssueHealthcare,
	IssueImmigration,
	IssueClimate,
	IssueEducation,
	IssueCrime,
	IssueForeignPolicy,
	IssueGunRights,
	IssueAbortion,
	IssueTaxes,
}

var issueLabels = map[Issue]string{
	IssueEconomy:       "Economy",
	IssueHealthcare:    "Healthcare",
	IssueImmigration:   "Immigration",
	IssueClimate:       "Climate",
	IssueEducation:     "Education",
	IssueCrime:         "Crime",
	IssueForeignPolicy: "Foreign Policy",
	IssueGunRights:     "Gun Rights",
	IssueAbortion:      "Abortion",
	IssueTaxes:         "Taxes",
}

func (i Issue) Valid() bool {
	_, ok := issueLabels[i]
	return ok
}

func (i Issue) Label() string {
	if label, ok := issueLabels[i]; ok {
		return label
	}
	return string(i)
}

// NormalizeIssues lowercases, drops unknown and duplicate labels and keeps at
// most MaxIssueTags entries in input order.
func NormalizeIssues(raw []string) []Issue {
	out := make([]Issue, 0, MaxIssueTags)
	seen := make(map[Issue]bool, len(raw))
	for _, v := range raw {
		issue := Issue(strings.ToLower(strings.TrimSpace(v)))
		if !issue.Valid() || seen[issue] {
			continue
		}
		seen[issue] = true
		out = append(out, issue)
		if len(out) == MaxIssueTags {
			break
		}
	}
	return out
}

type PostType string

const (
	PostTypePlayer PostType = "player"
	PostTypeRival  PostType = "rival"
	PostTypeNews   PostType = "news"
)

func (t PostType) Valid() bool {
	switch t {
	case PostTypePlayer, PostTypeRival, PostTypeNews:
		return true
	default:
		return false
	}
}

type ReactionType string

const (
	ReactionComment ReactionType = "comment"
	ReactionLike    ReactionType = "like"
	ReactionAngry   ReactionType = "angry"
	ReactionLaugh   ReactionType = "laugh"
	ReactionRetweet ReactionType = "retweet"
	ReactionIgnore  ReactionType = "ignore"
)

// ParseReactionType maps a free-form label onto the closed reaction set.
// "share" is accepted as an alias for retweet.
func ParseReactionType(raw string) (ReactionType, bool) {
	switch ReactionType(strings.ToLower(strings.TrimSpace(raw))) {
	case ReactionComment:
		return ReactionComment, true
	case ReactionLike:
		return ReactionLike, true
	case ReactionAngry:
		return ReactionAngry, true
	case ReactionLaugh:
		return ReactionLaugh, true
	case ReactionRetweet, "share":
		return ReactionRetweet, true
	case ReactionIgnore:
		return ReactionIgnore, true
	default:
		return "", false
	}
}

type EngagementType string

const (
	EngagementLike    EngagementType = "like"
	EngagementRetweet EngagementType = "retweet"
	EngagementDislike EngagementType = "dislike"
	EngagementNone    EngagementType = "none"
)

type EventKind string

const (
	EventNews      EventKind = "news"
	EventRivalPost EventKind = "rival_post"
)

type JobKind string

const (
	JobPersonaResponse JobKind = "persona_response"
	JobNewsGeneration  JobKind = "news_generation"
	JobRivalPost       JobKind = "rival_post"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobPersonaResponse, JobNewsGeneration, JobRivalPost:
		return true
	default:
		return false
	}
}

type AgeGroup string

const (
	Age18To29 AgeGroup = "18-29"
	Age30To44 AgeGroup = "30-44"
	Age45To64 AgeGroup = "45-64"
	Age65Plus AgeGroup = "65+"
)

type Persona struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Handle               string   `json:"handle" yaml:"handle"`
	Age                  AgeGroup `json:"age" yaml:"age"`
	Occupation           string   `json:"occupation" yaml:"occupation"`
	Location             string   `json:"location" yaml:"location"`
	PoliticalLeaning     int      `json:"political_leaning" yaml:"political_leaning"`
	PriorityIssues       []Issue  `json:"priority_issues" yaml:"priority_issues"`
	PersonalityTraits    []string `json:"personality_traits" yaml:"personality_traits"`
	EngagementLikelihood float64  `json:"engagement_likelihood" yaml:"engagement_likelihood"`
	OpinionOfPlayer      int      `json:"opinion_of_player" yaml:"opinion_of_player"`
	OpinionOfRival       int      `json:"opinion_of_rival" yaml:"opinion_of_rival"`
	AvatarSeed           string   `json:"avatar_seed" yaml:"avatar_seed"`
	VocabularyLevel      string   `json:"vocabulary_level" yaml:"vocabulary_level"`
	Formality            string   `json:"formality" yaml:"formality"`
	UsesSlang            bool     `json:"uses_slang" yaml:"uses_slang"`
	UsesEmoji            bool     `json:"uses_emoji" yaml:"uses_emoji"`
	Catchphrases         []string `json:"catchphrases,omitempty" yaml:"catchphrases"`
	ExamplePosts         []string `json:"example_posts,omitempty" yaml:"example_posts"`
	ResponseWave         int      `json:"response_wave" yaml:"response_wave"`
	LastResponseTick     int      `json:"last_response_tick" yaml:"-"`
	SegmentSize          int      `json:"segment_size" yaml:"segment_size"`
}

// HasPriority reports whether issue is one of the persona's priority issues.
func (p Persona) HasPriority(issue Issue) bool {
	for _, v := range p.PriorityIssues {
		if v == issue {
			return true
		}
	}
	return false
}

// Normalized returns a copy with every bounded attribute clamped into range.
func (p Persona) Normalized() Persona {
	p.PoliticalLeaning = Clamp(p.PoliticalLeaning, MinOpinion, MaxOpinion)
	p.OpinionOfPlayer = Clamp(p.OpinionOfPlayer, MinOpinion, MaxOpinion)
	p.OpinionOfRival = Clamp(p.OpinionOfRival, MinOpinion, MaxOpinion)
	p.ResponseWave = Clamp(p.ResponseWave, 1, 3)
	if p.EngagementLikelihood < 0 {
		p.EngagementLikelihood = 0
	}
	if p.EngagementLikelihood > 1 {
		p.EngagementLikelihood = 1
	}
	if len(p.PriorityIssues) > MaxIssueTags {
		p.PriorityIssues = append([]Issue(nil), p.PriorityIssues[:MaxIssueTags]...)
	}
	if p.SegmentSize < 0 {
		p.SegmentSize = 0
	}
	return p
}

type Player struct {
	CandidateName     string  `json:"candidate_name"`
	Party             string  `json:"party"`
	PoliticalPosition int     `json:"political_position"`
	PriorityIssues    []Issue `json:"priority_issues"`
}

func (p Player) Handle() string {
	return "@" + strings.ToLower(strings.Join(strings.Fields(p.CandidateName), ""))
}

type Rival struct {
	Name              string `json:"name"`
	Handle            string `json:"handle"`
	Party             string `json:"party"`
	PoliticalPosition int    `json:"political_position"`
	AvatarSeed        string `json:"avatar_seed"`
}

type Author struct {
	Name       string `json:"name"`
	Handle     string `json:"handle"`
	AvatarSeed string `json:"avatar_seed"`
}

type PostReaction struct {
	PersonaID      string       `json:"persona_id"`
	ReactionType   ReactionType `json:"reaction_type"`
	Comment        *string      `json:"comment,omitempty"`
	SentimentShift int          `json:"sentiment_shift"`
	DisplayedAt    int          `json:"displayed_at"`
	IsDisplayed    bool         `json:"is_displayed"`
}

type Engagement struct {
	Likes             int `json:"likes"`
	Retweets          int `json:"retweets"`
	Dislikes          int `json:"dislikes"`
	DisplayedLikes    int `json:"displayed_likes"`
	DisplayedRetweets int `json:"displayed_retweets"`
	DisplayedDislikes int `json:"displayed_dislikes"`
}

type Post struct {
	ID           string         `json:"id"`
	Type         PostType       `json:"type"`
	Author       Author         `json:"author"`
	Content      string         `json:"content"`
	IssueTags    []Issue        `json:"issue_tags"`
	Timestamp    int            `json:"timestamp"`
	Reactions    []PostReaction `json:"reactions"`
	IsProcessing bool           `json:"is_processing"`
	Engagement   Engagement     `json:"engagement"`
}

// Clone returns a deep copy safe to hand out of a locked section.
func (p Post) Clone() Post {
	p.IssueTags = append([]Issue(nil), p.IssueTags...)
	reactions := make([]PostReaction, len(p.Reactions))
	for i, r := range p.Reactions {
		if r.Comment != nil {
			c := *r.Comment
			r.Comment = &c
		}
		reactions[i] = r
	}
	p.Reactions = reactions
	return p
}

type NewsItem struct {
	ID             string        `json:"id"`
	Headline       string        `json:"headline"`
	Description    string        `json:"description"`
	AffectedIssues []Issue       `json:"affected_issues"`
	IssueImpact    map[Issue]int `json:"issue_impact,omitempty"`
	Timestamp      int           `json:"timestamp"`
}

type Usage struct {
	TotalTokens int     `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// GenerationRecord is one settled generation job, kept for the audit log.
type GenerationRecord struct {
	JobID      string    `json:"job_id"`
	Kind       JobKind   `json:"kind"`
	Attempts   int       `json:"attempts"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type LoopState struct {
	CurrentTick   int `json:"current_tick"`
	NextNewsTick  int `json:"next_news_tick"`
	NextRivalTick int `json:"next_rival_tick"`
}

// Snapshot is the full restorable session state.
type Snapshot struct {
	Player   *Player    `json:"player,omitempty"`
	Rival    Rival      `json:"rival"`
	Personas []Persona  `json:"personas"`
	Posts    []Post     `json:"posts"`
	News     []NewsItem `json:"news"`
	Loop     LoopState  `json:"loop"`
	Usage    Usage      `json:"usage"`
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampOpinion(v int) int {
	return Clamp(v, MinOpinion, MaxOpinion)
}

func ClampSentiment(v int) int {
	return Clamp(v, MinSentiment, MaxSentiment)
}

// DescribeLeaning renders a political leaning for prompts and displays.
func DescribeLeaning(v int) string {
	switch {
	case v <= -60:
		return "strongly liberal"
	case v <= -20:
		return "moderate liberal"
	case v <= 20:
		return "centrist"
	case v <= 60:
		return "moderate conservative"
	default:
		return "strongly conservative"
	}
}

func DescribeOpinion(v int) string {
	switch {
	case v <= -60:
		return "strongly negative"
	case v <= -20:
		return "negative"
	case v <= 20:
		return "neutral"
	case v <= 60:
		return "positive"
	default:
		return "strongly positive"
	}
}

type FeedEventType string

const (
	FeedPostCreated      FeedEventType = "post_created"
	FeedPostSettled      FeedEventType = "post_settled"
	FeedReactionRevealed FeedEventType = "reaction_revealed"
	FeedNews             FeedEventType = "news"
	FeedReset            FeedEventType = "reset"

	// FeedSync is sent only to a newly connected subscriber.
	FeedSync FeedEventType = "sync"
)

// FeedEvent is one change broadcast to live subscribers. Only the field
// matching Type is set.
type FeedEvent struct {
	Type     FeedEventType `json:"type"`
	Tick     int           `json:"tick"`
	PostID   string        `json:"post_id,omitempty"`
	Post     *Post         `json:"post,omitempty"`
	Reaction *PostReaction `json:"reaction,omitempty"`
	News     *NewsItem     `json:"news,omitempty"`
}
