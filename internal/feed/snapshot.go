package feed

import (
	"math"

	"campaign_feed/internal/domain"
)

// Snapshot copies the restorable session state, trimmed to the newest
// snapshotPosts posts and snapshotNews news items.
func (s *State) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{
		Rival:    s.rival,
		Personas: append([]domain.Persona(nil), s.personas...),
		Loop:     s.loop,
		Usage:    s.usage,
	}
	if s.player != nil {
		p := *s.player
		snap.Player = &p
	}
	n := min(len(s.posts), snapshotPosts)
	snap.Posts = make([]domain.Post, n)
	for i := 0; i < n; i++ {
		snap.Posts[i] = s.posts[i].Clone()
	}
	snap.News = append([]domain.NewsItem(nil), s.news[:min(len(s.news), snapshotNews)]...)
	return snap
}

// Restore replaces the session with snap. Values that drifted out of range
// are clamped; reaction display flags are kept as saved. Returns the new
// session token.
func (s *State) Restore(snap domain.Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session++
	s.player = nil
	if snap.Player != nil {
		p := *snap.Player
		p.PoliticalPosition = domain.ClampOpinion(p.PoliticalPosition)
		s.player = &p
	}
	s.rival = snap.Rival
	s.rival.PoliticalPosition = domain.ClampOpinion(s.rival.PoliticalPosition)
	s.setPersonasLocked(snap.Personas)

	s.posts = make([]domain.Post, 0, min(len(snap.Posts), s.cfg.PostHistory))
	for _, post := range snap.Posts {
		if len(s.posts) == s.cfg.PostHistory {
			break
		}
		if !post.Type.Valid() {
			continue
		}
		post = post.Clone()
		post.IsProcessing = false
		for i := range post.Reactions {
			r := &post.Reactions[i]
			r.SentimentShift = domain.ClampSentiment(r.SentimentShift)
			if r.DisplayedAt < post.Timestamp {
				r.DisplayedAt = post.Timestamp
			}
		}
		s.posts = append(s.posts, post)
	}
	news := snap.News
	if len(news) > s.cfg.NewsHistory {
		news = news[:s.cfg.NewsHistory]
	}
	s.news = append([]domain.NewsItem(nil), news...)

	s.loop = snap.Loop
	if s.loop.CurrentTick < 0 {
		s.loop.CurrentTick = 0
	}
	s.usage = snap.Usage
	if s.usage.TotalTokens < 0 || math.IsNaN(s.usage.TotalCost) || s.usage.TotalCost < 0 {
		s.usage = domain.Usage{}
	}
	return s.session
}
