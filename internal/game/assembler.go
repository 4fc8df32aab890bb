package game

import (
	"errors"
	"sync"

	"campaign_feed/internal/domain"
	"campaign_feed/internal/engagement"
	"campaign_feed/internal/feed"
	"campaign_feed/internal/parser"
	"campaign_feed/internal/prompts"
	"campaign_feed/internal/queue"
	"campaign_feed/internal/selection"
)

// createPostLocked stamps post with the current tick, picks its commenting
// cohort, computes silent engagement for everyone else, stores it and
// submits one generation job per cohort member. Callers hold e.mu.
func (e *Engine) createPostLocked(session uint64, post domain.Post) (domain.Post, error) {
	player, _ := e.state.Player()
	rival := e.state.Rival()
	personas := e.state.Personas()

	post.Timestamp = e.state.Tick()
	post.Reactions = nil
	cohort := selection.Select(personas, post, selection.Context{
		CurrentTick:    post.Timestamp,
		PlayerPosition: player.PoliticalPosition,
	}, e.cfg.Responders, e.rng)

	commenting := make(map[string]bool, len(cohort))
	for _, p := range cohort {
		commenting[p.ID] = true
	}
	post.Engagement = engagement.Compute(personas, commenting, post, stanceFor(post, player, rival), e.cfg.Viral, e.rng)
	post.IsProcessing = len(cohort) > 0

	if err := e.state.AddPost(session, post); err != nil {
		return domain.Post{}, err
	}
	created := post.Clone()
	e.publish(domain.FeedEvent{Type: domain.FeedPostCreated, Tick: post.Timestamp, PostID: post.ID, Post: &created})
	e.logger.Printf("post created id=%s type=%s tick=%d cohort=%d", post.ID, post.Type, post.Timestamp, len(cohort))

	if len(cohort) == 0 {
		return post, nil
	}
	results := make([]<-chan queue.Result, len(cohort))
	for i, p := range cohort {
		results[i] = e.queue.Submit(queue.Job{
			Kind:   domain.JobPersonaResponse,
			Prompt: prompts.PersonaResponse(p, post, subjectFor(post, player, rival, p)),
		})
	}
	e.spawn(func() { e.collect(session, post, cohort, results) })
	return post, nil
}

// collect waits for every cohort job, attaching each reaction as it
// arrives, then clears the post's processing flag. Failures only shrink
// the set of reactions.
func (e *Engine) collect(session uint64, post domain.Post, cohort []domain.Persona, results []<-chan queue.Result) {
	var wg sync.WaitGroup
	for i, p := range cohort {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.applyResult(session, post, p, i, <-results[i])
		}()
	}
	wg.Wait()

	if err := e.state.SetProcessing(session, post.ID, false); err != nil {
		return
	}
	e.publish(domain.FeedEvent{Type: domain.FeedPostSettled, PostID: post.ID})
}

func (e *Engine) applyResult(session uint64, post domain.Post, p domain.Persona, index int, res queue.Result) {
	if res.Err != nil {
		if !errors.Is(res.Err, queue.ErrCanceled) {
			e.logger.Printf("persona reaction failed post=%s persona=%s attempts=%d: %v", post.ID, p.ID, res.Attempts, res.Err)
		}
		return
	}
	reply := parser.ParsePersona(res.Text)
	delay := selection.DisplayDelay(p.ResponseWave, index, e.cfg.ResponseSpeed, e.rng)
	_, err := e.state.ApplyReaction(session, post.ID, domain.PostReaction{
		PersonaID:      p.ID,
		ReactionType:   reply.Reaction,
		Comment:        reply.Comment,
		SentimentShift: reply.SentimentShift,
	}, delay)
	if err != nil && !errors.Is(err, feed.ErrStaleSession) {
		e.logger.Printf("apply reaction post=%s persona=%s: %v", post.ID, p.ID, err)
	}
}

// stanceFor is the author position and opinion a post is judged against.
func stanceFor(post domain.Post, player domain.Player, rival domain.Rival) engagement.Stance {
	switch post.Type {
	case domain.PostTypeRival:
		return engagement.Stance{Position: rival.PoliticalPosition, Rival: true}
	case domain.PostTypePlayer, domain.PostTypeNews:
		return engagement.Stance{Position: player.PoliticalPosition}
	default:
		return engagement.Stance{Position: player.PoliticalPosition}
	}
}

func subjectFor(post domain.Post, player domain.Player, rival domain.Rival, p domain.Persona) prompts.Subject {
	switch post.Type {
	case domain.PostTypeRival:
		return prompts.Subject{Name: rival.Name, Party: rival.Party, Opinion: p.OpinionOfRival}
	case domain.PostTypePlayer, domain.PostTypeNews:
		return prompts.Subject{Name: player.CandidateName, Party: player.Party, Opinion: p.OpinionOfPlayer}
	default:
		return prompts.Subject{Name: player.CandidateName, Party: player.Party, Opinion: p.OpinionOfPlayer}
	}
}
