package scheduler

import "campaign_feed/internal/domain"

type RNG interface {
	IntN(n int) int
}

// Interval is an inclusive range of ticks.
type Interval struct {
	Min int
	Max int
}

func (i Interval) draw(rng RNG) int {
	lo, hi := i.Min, i.Max
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo + rng.IntN(hi-lo+1)
}

type Config struct {
	News         Interval
	Rival        Interval
	RivalInitial Interval
}

func (c Config) withDefaults() Config {
	if c.News.Max <= 0 {
		c.News = Interval{Min: 60, Max: 90}
	}
	if c.Rival.Max <= 0 {
		c.Rival = Interval{Min: 90, Max: 120}
	}
	if c.RivalInitial.Max <= 0 {
		c.RivalInitial = Interval{Min: 30, Max: 60}
	}
	return c
}

// Scheduler holds the next-fire tick of each timed event. It is not safe for
// concurrent use; the engine serializes access.
type Scheduler struct {
	cfg       Config
	rng       RNG
	nextNews  int
	nextRival int
}

func New(cfg Config, rng RNG) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), rng: rng}
}

// Arm starts a session at tick: news at a steady-state interval and the rival
// at the shorter initial interval.
func (s *Scheduler) Arm(tick int) {
	s.nextNews = tick + s.cfg.News.draw(s.rng)
	s.nextRival = tick + s.cfg.RivalInitial.draw(s.rng)
}

// Check returns the events due at tick and re-arms each from tick. Every
// kind fires at most once per call regardless of how far tick overshot.
func (s *Scheduler) Check(tick int) []domain.EventKind {
	var due []domain.EventKind
	if tick >= s.nextNews {
		due = append(due, domain.EventNews)
		s.nextNews = tick + s.cfg.News.draw(s.rng)
	}
	if tick >= s.nextRival {
		due = append(due, domain.EventRivalPost)
		s.nextRival = tick + s.cfg.Rival.draw(s.rng)
	}
	return due
}

func (s *Scheduler) Next() (news, rival int) {
	return s.nextNews, s.nextRival
}

// Restore reinstates counters from a snapshot. Non-positive values re-arm
// from tick.
func (s *Scheduler) Restore(tick, news, rival int) {
	s.Arm(tick)
	if news > 0 {
		s.nextNews = news
	}
	if rival > 0 {
		s.nextRival = rival
	}
}
