package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"campaign_feed/internal/domain"
	"campaign_feed/internal/feed"
	"campaign_feed/internal/queue"
	"campaign_feed/internal/roster"
	"campaign_feed/internal/scheduler"
	"campaign_feed/internal/selection"
)

var (
	ErrNotStarted    = errors.New("no campaign session in progress")
	ErrFeedBusy      = errors.New("previous post is still collecting reactions")
	ErrInvalidPost   = errors.New("invalid post")
	ErrInvalidPlayer = errors.New("invalid player")
)

// Queue is the generation dispatcher the engine submits jobs to.
type Queue interface {
	Submit(job queue.Job) <-chan queue.Result
	CancelAll()
	Status() queue.Status
}

type Publisher interface {
	Publish(ev domain.FeedEvent) error
}

type Config struct {
	Responders    selection.Config
	Schedule      scheduler.Config
	ResponseSpeed float64
	Viral         float64
	Seed          uint64
	Roster        func() ([]domain.Persona, error)
}

func (c Config) withDefaults() Config {
	if c.Responders.MaxResponders <= 0 {
		c.Responders = selection.Config{MinResponders: 5, MaxResponders: 10}
	}
	if c.ResponseSpeed <= 0 {
		c.ResponseSpeed = 1
	}
	if c.Viral <= 0 {
		c.Viral = 1
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	if c.Roster == nil {
		c.Roster = roster.Default
	}
	return c
}

// Engine owns the logical clock and every path that creates posts. Post
// creation and tick advance are serialized by mu; reaction results flow
// back through feed.State, which serializes them on its own lock.
type Engine struct {
	state  *feed.State
	queue  Queue
	bus    Publisher
	cfg    Config
	logger *log.Logger
	rng    *lockedRand

	mu    sync.Mutex
	sched *scheduler.Scheduler

	wg sync.WaitGroup
}

func New(state *feed.State, q Queue, bus Publisher, cfg Config, logger *log.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	rng := &lockedRand{r: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d))}
	return &Engine{
		state:  state,
		queue:  q,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		rng:    rng,
		sched:  scheduler.New(cfg.Schedule, rng),
	}
}

// NewSession discards any running session and starts a fresh campaign with
// the full roster at tick 0.
func (e *Engine) NewSession(player domain.Player, rival domain.Rival) error {
	player.CandidateName = strings.TrimSpace(player.CandidateName)
	if player.CandidateName == "" {
		return fmt.Errorf("%w: candidate name is required", ErrInvalidPlayer)
	}
	player.PoliticalPosition = domain.ClampOpinion(player.PoliticalPosition)
	rival.PoliticalPosition = domain.ClampOpinion(rival.PoliticalPosition)

	personas, err := e.cfg.Roster()
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.CancelAll()
	e.state.Begin(player, rival, personas)
	e.sched.Arm(0)
	e.state.SetSchedule(e.sched.Next())
	e.logger.Printf("session started candidate=%q party=%s rival=%q personas=%d", player.CandidateName, player.Party, rival.Name, len(personas))
	e.publish(domain.FeedEvent{Type: domain.FeedReset})
	return nil
}

// Reset aborts all generation work and clears the session. Results of
// aborted calls never reach the new state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.CancelAll()
	e.state.Clear()
	e.sched.Arm(0)
	e.logger.Printf("session reset")
	e.publish(domain.FeedEvent{Type: domain.FeedReset})
}

// Restore loads snap as the running session, resuming its clock and event
// counters.
func (e *Engine) Restore(snap domain.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.CancelAll()
	e.state.Restore(snap)
	loop := e.state.Loop()
	e.sched.Restore(loop.CurrentTick, loop.NextNewsTick, loop.NextRivalTick)
	e.state.SetSchedule(e.sched.Next())
	e.logger.Printf("session restored tick=%d posts=%d", loop.CurrentTick, len(snap.Posts))
}

// Tick advances the logical clock by one, reveals due reactions and fires
// any due news or rival event. It is a no-op without a session.
func (e *Engine) Tick() int {
	e.mu.Lock()
	if !e.state.Started() {
		e.mu.Unlock()
		return 0
	}
	session := e.state.Session()
	tick := e.state.Advance()
	revealed := e.state.Reveal(tick)
	due := e.sched.Check(tick)
	e.state.SetSchedule(e.sched.Next())
	e.mu.Unlock()

	for _, r := range revealed {
		reaction := r.Reaction
		e.publish(domain.FeedEvent{Type: domain.FeedReactionRevealed, Tick: tick, PostID: r.PostID, Reaction: &reaction})
	}
	for _, kind := range due {
		switch kind {
		case domain.EventNews:
			e.spawn(func() { e.generateNews(session) })
		case domain.EventRivalPost:
			e.spawn(func() { e.generateRivalPost(session) })
		}
	}
	return tick
}

// SubmitPlayerPost validates and publishes a player post, then dispatches
// reactions for it in the background.
func (e *Engine) SubmitPlayerPost(content string, tags []string) (domain.Post, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return domain.Post{}, fmt.Errorf("%w: content is empty", ErrInvalidPost)
	case utf8.RuneCountInString(content) > domain.MaxPostChars:
		return domain.Post{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidPost, domain.MaxPostChars)
	case len(tags) > domain.MaxIssueTags:
		return domain.Post{}, fmt.Errorf("%w: at most %d issue tags", ErrInvalidPost, domain.MaxIssueTags)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	player, ok := e.state.Player()
	if !ok {
		return domain.Post{}, ErrNotStarted
	}
	if latest, ok := e.state.Latest(); ok && latest.IsProcessing {
		return domain.Post{}, ErrFeedBusy
	}

	post := domain.Post{
		ID:   uuid.NewString(),
		Type: domain.PostTypePlayer,
		Author: domain.Author{
			Name:       player.CandidateName,
			Handle:     player.Handle(),
			AvatarSeed: player.CandidateName,
		},
		Content:   content,
		IssueTags: domain.NormalizeIssues(tags),
	}
	return e.createPostLocked(e.state.Session(), post)
}

// Status is a point-in-time view for observers.
type Status struct {
	Started            bool         `json:"started"`
	Tick               int          `json:"tick"`
	NextNewsTick       int          `json:"next_news_tick"`
	NextRivalTick      int          `json:"next_rival_tick"`
	PlayerFavorability int          `json:"player_favorability"`
	RivalFavorability  int          `json:"rival_favorability"`
	Queue              queue.Status `json:"queue"`
	Usage              domain.Usage `json:"usage"`
}

func (e *Engine) Status() Status {
	loop := e.state.Loop()
	pf, rf := e.state.Favorability()
	return Status{
		Started:            e.state.Started(),
		Tick:               loop.CurrentTick,
		NextNewsTick:       loop.NextNewsTick,
		NextRivalTick:      loop.NextRivalTick,
		PlayerFavorability: pf,
		RivalFavorability:  rf,
		Queue:              e.queue.Status(),
		Usage:              e.state.Usage(),
	}
}

func (e *Engine) State() *feed.State {
	return e.state
}

// Wait blocks until every background assembly and event generation has
// settled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) spawn(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

func (e *Engine) publish(ev domain.FeedEvent) {
	if e.bus == nil {
		return
	}
	if ev.Tick == 0 {
		ev.Tick = e.state.Tick()
	}
	if err := e.bus.Publish(ev); err != nil {
		e.logger.Printf("feed event dropped type=%s: %v", ev.Type, err)
	}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
