package game

import (
	"errors"

	"github.com/google/uuid"

	"campaign_feed/internal/domain"
	"campaign_feed/internal/parser"
	"campaign_feed/internal/prompts"
	"campaign_feed/internal/queue"
)

var newsAuthor = domain.Author{Name: "Breaking News", Handle: "@news", AvatarSeed: "news"}

func (e *Engine) generateNews(session uint64) {
	player, ok := e.state.Player()
	if !ok {
		return
	}
	pf, rf := e.state.Favorability()
	prompt := prompts.News(prompts.NewsContext{
		Player:             player,
		Rival:              e.state.Rival(),
		PlayerFavorability: pf,
		RivalFavorability:  rf,
		RecentPosts:        e.state.Posts(5),
		HotIssues:          e.state.HotIssues(),
	})

	res := <-e.queue.Submit(queue.Job{Kind: domain.JobNewsGeneration, Prompt: prompt})
	if res.Err != nil {
		e.logFailure("news generation", res)
		return
	}
	reply, ok := parser.ParseNews(res.Text)
	if !ok {
		e.logger.Printf("news payload dropped job=%s: no headline or description", res.JobID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Session() != session {
		return
	}
	item := domain.NewsItem{
		ID:             uuid.NewString(),
		Headline:       reply.Headline,
		Description:    reply.Description,
		AffectedIssues: reply.AffectedIssues,
		IssueImpact:    reply.IssueImpact,
		Timestamp:      e.state.Tick(),
	}
	if err := e.state.AddNews(session, item); err != nil {
		return
	}
	e.publish(domain.FeedEvent{Type: domain.FeedNews, Tick: item.Timestamp, News: &item})

	post := domain.Post{
		ID:        uuid.NewString(),
		Type:      domain.PostTypeNews,
		Author:    newsAuthor,
		Content:   item.Headline + "\n\n" + item.Description,
		IssueTags: item.AffectedIssues,
	}
	if _, err := e.createPostLocked(session, post); err != nil {
		e.logger.Printf("news post not created news=%s: %v", item.ID, err)
	}
}

func (e *Engine) generateRivalPost(session uint64) {
	player, ok := e.state.Player()
	if !ok {
		return
	}
	rival := e.state.Rival()
	var playerPosts []domain.Post
	for _, p := range e.state.Posts(0) {
		if p.Type == domain.PostTypePlayer {
			playerPosts = append(playerPosts, p)
			if len(playerPosts) == 3 {
				break
			}
		}
	}
	var headlines []string
	for _, n := range e.state.News(3) {
		headlines = append(headlines, n.Headline)
	}
	pf, rf := e.state.Favorability()
	prompt := prompts.Rival(prompts.RivalContext{
		Player:             player,
		Rival:              rival,
		PlayerFavorability: pf,
		RivalFavorability:  rf,
		RecentPlayerPosts:  playerPosts,
		RecentHeadlines:    headlines,
	})

	res := <-e.queue.Submit(queue.Job{Kind: domain.JobRivalPost, Prompt: prompt})
	if res.Err != nil {
		e.logFailure("rival post", res)
		return
	}
	reply, ok := parser.ParseRival(res.Text)
	if !ok {
		e.logger.Printf("rival payload dropped job=%s: empty content", res.JobID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Session() != session {
		return
	}
	post := domain.Post{
		ID:   uuid.NewString(),
		Type: domain.PostTypeRival,
		Author: domain.Author{
			Name:       rival.Name,
			Handle:     rival.Handle,
			AvatarSeed: rival.AvatarSeed,
		},
		Content:   reply.Content,
		IssueTags: reply.IssueTags,
	}
	if _, err := e.createPostLocked(session, post); err != nil {
		e.logger.Printf("rival post not created: %v", err)
	}
}

func (e *Engine) logFailure(what string, res queue.Result) {
	if errors.Is(res.Err, queue.ErrCanceled) {
		return
	}
	e.logger.Printf("%s failed job=%s attempts=%d: %v", what, res.JobID, res.Attempts, res.Err)
}
