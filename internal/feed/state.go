package feed

import (
	"errors"
	"math"
	"sort"
	"sync"

	"campaign_feed/internal/domain"
)

var ErrStaleSession = errors.New("feed session has been reset")

const (
	snapshotPosts  = 50
	snapshotNews   = 10
	hotIssueWindow = 10
	hotIssueCount  = 3
)

type Config struct {
	PostHistory int
	NewsHistory int
}

func (c Config) withDefaults() Config {
	if c.PostHistory <= 0 {
		c.PostHistory = 100
	}
	if c.NewsHistory <= 0 {
		c.NewsHistory = 20
	}
	return c
}

// State is the session arena. Personas are indexed by id; posts and news are
// kept newest first. Every mutation goes through a method that holds mu, so
// reaction callbacks from concurrent queue workers serialize here.
type State struct {
	cfg Config

	mu       sync.RWMutex
	session  uint64
	player   *domain.Player
	rival    domain.Rival
	personas []domain.Persona
	index    map[string]int
	posts    []domain.Post
	news     []domain.NewsItem
	loop     domain.LoopState
	usage    domain.Usage
}

func New(cfg Config) *State {
	return &State{cfg: cfg.withDefaults(), index: map[string]int{}}
}

// Begin starts a fresh session and returns its token. Mutations carrying an
// older token are rejected.
func (s *State) Begin(player domain.Player, rival domain.Rival, personas []domain.Persona) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session++
	p := player
	p.PriorityIssues = append([]domain.Issue(nil), player.PriorityIssues...)
	s.player = &p
	s.rival = rival
	s.setPersonasLocked(personas)
	s.posts = nil
	s.news = nil
	s.loop = domain.LoopState{}
	s.usage = domain.Usage{}
	return s.session
}

// Clear drops the session entirely. Started reports false until the next
// Begin or Restore.
func (s *State) Clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session++
	s.player = nil
	s.rival = domain.Rival{}
	s.setPersonasLocked(nil)
	s.posts = nil
	s.news = nil
	s.loop = domain.LoopState{}
	s.usage = domain.Usage{}
	return s.session
}

func (s *State) setPersonasLocked(personas []domain.Persona) {
	s.personas = make([]domain.Persona, 0, len(personas))
	s.index = make(map[string]int, len(personas))
	for _, p := range personas {
		if _, dup := s.index[p.ID]; dup || p.ID == "" {
			continue
		}
		p = p.Normalized()
		p.PriorityIssues = append([]domain.Issue(nil), p.PriorityIssues...)
		s.index[p.ID] = len(s.personas)
		s.personas = append(s.personas, p)
	}
}

func (s *State) Session() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *State) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player != nil
}

func (s *State) Player() (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.player == nil {
		return domain.Player{}, false
	}
	return *s.player, true
}

func (s *State) Rival() domain.Rival {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rival
}

func (s *State) Personas() []domain.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Persona(nil), s.personas...)
}

func (s *State) Persona(id string) (domain.Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Persona{}, false
	}
	return s.personas[i], true
}

// Advance moves the logical clock forward by one and returns the new tick.
func (s *State) Advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.CurrentTick++
	return s.loop.CurrentTick
}

func (s *State) Tick() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loop.CurrentTick
}

func (s *State) Loop() domain.LoopState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loop
}

func (s *State) SetSchedule(nextNews, nextRival int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop.NextNewsTick = nextNews
	s.loop.NextRivalTick = nextRival
}

// AddPost prepends post and trims history.
func (s *State) AddPost(session uint64, post domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		return ErrStaleSession
	}
	s.posts = append([]domain.Post{post.Clone()}, s.posts...)
	if len(s.posts) > s.cfg.PostHistory {
		s.posts = s.posts[:s.cfg.PostHistory]
	}
	return nil
}

func (s *State) AddNews(session uint64, item domain.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		return ErrStaleSession
	}
	s.news = append([]domain.NewsItem{item}, s.news...)
	if len(s.news) > s.cfg.NewsHistory {
		s.news = s.news[:s.cfg.NewsHistory]
	}
	return nil
}

// Posts returns up to limit posts, newest first. limit <= 0 returns all.
func (s *State) Posts(limit int) []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.posts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Post, n)
	for i := range out {
		out[i] = s.posts[i].Clone()
	}
	return out
}

func (s *State) Post(id string) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.postIndexLocked(id); i >= 0 {
		return s.posts[i].Clone(), true
	}
	return domain.Post{}, false
}

// Latest returns the newest post.
func (s *State) Latest() (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.posts) == 0 {
		return domain.Post{}, false
	}
	return s.posts[0].Clone(), true
}

func (s *State) News(limit int) []domain.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.news)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]domain.NewsItem(nil), s.news[:n]...)
}

func (s *State) postIndexLocked(id string) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) SetProcessing(session uint64, postID string, processing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		return ErrStaleSession
	}
	if i := s.postIndexLocked(postID); i >= 0 {
		s.posts[i].IsProcessing = processing
	}
	return nil
}

// ApplyReaction attaches r to the post in completion order, reveals it delay
// ticks after the current tick, moves the persona's opinion of the post's
// subject by the sentiment shift and stamps the persona's last response.
// A post that has aged out of history only updates the persona.
func (s *State) ApplyReaction(session uint64, postID string, r domain.PostReaction, delay int) (domain.PostReaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		return domain.PostReaction{}, ErrStaleSession
	}
	now := s.loop.CurrentTick
	r.SentimentShift = domain.ClampSentiment(r.SentimentShift)
	r.DisplayedAt = now + max(0, delay)
	r.IsDisplayed = false
	if r.ReactionType != domain.ReactionComment {
		r.Comment = nil
	}

	postType := domain.PostTypePlayer
	if i := s.postIndexLocked(postID); i >= 0 {
		post := &s.posts[i]
		if r.DisplayedAt < post.Timestamp {
			r.DisplayedAt = post.Timestamp
		}
		post.Reactions = append(post.Reactions, r)
		postType = post.Type
	}

	if i, ok := s.index[r.PersonaID]; ok {
		p := &s.personas[i]
		switch postType {
		case domain.PostTypeRival:
			p.OpinionOfRival = domain.ClampOpinion(p.OpinionOfRival + r.SentimentShift)
		case domain.PostTypePlayer, domain.PostTypeNews:
			p.OpinionOfPlayer = domain.ClampOpinion(p.OpinionOfPlayer + r.SentimentShift)
		}
		p.LastResponseTick = now
	}
	return r, nil
}

// Revealed is a reaction that became visible during Reveal.
type Revealed struct {
	PostID   string              `json:"post_id"`
	Reaction domain.PostReaction `json:"reaction"`
}

// Reveal flips every pending reaction whose displayedAt has been reached.
// Calling it again for the same tick is a no-op.
func (s *State) Reveal(tick int) []Revealed {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Revealed
	for i := range s.posts {
		for j := range s.posts[i].Reactions {
			r := &s.posts[i].Reactions[j]
			if r.IsDisplayed || r.DisplayedAt > tick {
				continue
			}
			r.IsDisplayed = true
			out = append(out, Revealed{PostID: s.posts[i].ID, Reaction: *r})
		}
	}
	return out
}

// RecordUsage accumulates tokens and cost of successful generation calls.
func (s *State) RecordUsage(tokens int, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.TotalTokens += tokens
	s.usage.TotalCost += cost
}

func (s *State) Usage() domain.Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

// Favorability maps the average opinion onto 0..100; 50 with no personas.
func (s *State) Favorability() (player, rival int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.personas) == 0 {
		return 50, 50
	}
	var sumPlayer, sumRival int
	for _, p := range s.personas {
		sumPlayer += p.OpinionOfPlayer
		sumRival += p.OpinionOfRival
	}
	n := float64(len(s.personas))
	return favorability(float64(sumPlayer) / n), favorability(float64(sumRival) / n)
}

func favorability(avg float64) int {
	return int(math.Round((avg + 100) / 200 * 100))
}

// HotIssues returns the most frequent tags across the newest posts.
func (s *State) HotIssues() []domain.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[domain.Issue]int{}
	var order []domain.Issue
	for i := 0; i < len(s.posts) && i < hotIssueWindow; i++ {
		for _, tag := range s.posts[i].IssueTags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > hotIssueCount {
		order = order[:hotIssueCount]
	}
	return order
}
