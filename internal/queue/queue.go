package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaign_feed/internal/domain"
	"campaign_feed/internal/generation"
)

var (
	ErrCanceled = errors.New("generation job canceled")
	ErrClosed   = errors.New("generation queue closed")
)

// UsageRecorder receives token and cost totals of successful calls.
type UsageRecorder interface {
	RecordUsage(tokens int, cost float64)
}

// Journal receives one record per settled job.
type Journal interface {
	RecordGeneration(rec domain.GenerationRecord)
}

type Config struct {
	MaxConcurrent int
	CallTimeout   time.Duration
	MaxRetries    int
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

type Job struct {
	ID         string
	Kind       domain.JobKind
	Prompt     string
	RetryCount int
	CreatedAt  time.Time
}

type Result struct {
	JobID      string
	Kind       domain.JobKind
	Text       string
	TokensUsed int
	Cost       float64
	Attempts   int
	Err        error
}

type Status struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

// Queue dispatches generation jobs in arrival order with at most
// MaxConcurrent calls in flight.
type Queue struct {
	gen     generation.Generator
	usage   UsageRecorder
	journal Journal
	cfg     Config
	logger  *log.Logger

	mu      sync.Mutex
	pending []*entry
	active  map[*entry]struct{}
	epoch   uint64
	closed  bool

	wg sync.WaitGroup
}

type entry struct {
	job    Job
	done   chan Result
	epoch  uint64
	cancel context.CancelFunc
}

func New(gen generation.Generator, usage UsageRecorder, journal Journal, cfg Config, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		gen:     gen,
		usage:   usage,
		journal: journal,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		active:  make(map[*entry]struct{}),
	}
}

// Submit enqueues job and returns a channel that receives exactly one Result.
func (q *Queue) Submit(job Job) <-chan Result {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	e := &entry{job: job, done: make(chan Result, 1)}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		e.done <- Result{JobID: job.ID, Kind: job.Kind, Err: ErrClosed}
		return e.done
	}
	e.epoch = q.epoch
	q.pending = append(q.pending, e)
	q.drainLocked()
	return e.done
}

func (q *Queue) drainLocked() {
	for len(q.pending) > 0 && len(q.active) < q.cfg.MaxConcurrent {
		e := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		q.active[e] = struct{}{}
		q.wg.Add(1)
		go q.run(ctx, e)
	}
}

func (q *Queue) run(ctx context.Context, e *entry) {
	defer q.wg.Done()
	start := time.Now()
	res := q.execute(ctx, e.job)

	q.mu.Lock()
	e.cancel()
	delete(q.active, e)
	if e.epoch != q.epoch {
		res = Result{JobID: e.job.ID, Kind: e.job.Kind, Attempts: res.Attempts, Err: ErrCanceled}
	} else if res.Err == nil && q.usage != nil {
		q.usage.RecordUsage(res.TokensUsed, res.Cost)
	}
	q.drainLocked()
	q.mu.Unlock()

	if q.journal != nil {
		rec := domain.GenerationRecord{
			JobID:      res.JobID,
			Kind:       res.Kind,
			Attempts:   res.Attempts,
			TokensUsed: res.TokensUsed,
			Cost:       res.Cost,
			DurationMS: time.Since(start).Milliseconds(),
			CreatedAt:  e.job.CreatedAt,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		q.journal.RecordGeneration(rec)
	}
	e.done <- res
}

// execute runs one job to a terminal outcome. A failed attempt is repeated
// with RetryCount+1 until RetryCount reaches MaxRetries.
func (q *Queue) execute(ctx context.Context, job Job) Result {
	res := Result{JobID: job.ID, Kind: job.Kind}
	for {
		res.Attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.CallTimeout)
		resp, err := q.gen.Generate(attemptCtx, generation.Request{
			ID:         job.ID,
			Kind:       job.Kind,
			Prompt:     job.Prompt,
			RetryCount: job.RetryCount,
		})
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			res.Text = resp.Text
			res.TokensUsed = resp.TokensUsed
			res.Cost = resp.Cost
			return res
		}
		if ctx.Err() != nil {
			res.Err = ErrCanceled
			return res
		}
		if timedOut {
			err = fmt.Errorf("call timed out after %s: %w", q.cfg.CallTimeout, err)
		}
		if job.RetryCount >= q.cfg.MaxRetries || !generation.Retryable(err) {
			q.logger.Printf("queue job failed id=%s kind=%s attempt=%d: %v", job.ID, job.Kind, res.Attempts, err)
			res.Err = err
			return res
		}
		q.logger.Printf("queue job retry id=%s kind=%s retry_count=%d: %v", job.ID, job.Kind, job.RetryCount+1, err)
		job.RetryCount++
	}
}

// CancelAll discards every pending job and aborts every in-flight call.
// Affected submitters receive ErrCanceled; jobs submitted afterwards run
// normally once the aborted calls have returned and freed their slots.
func (q *Queue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelLocked()
}

func (q *Queue) cancelLocked() {
	q.epoch++
	for _, e := range q.pending {
		e.done <- Result{JobID: e.job.ID, Kind: e.job.Kind, Err: ErrCanceled}
	}
	if n := len(q.pending) + len(q.active); n > 0 {
		q.logger.Printf("queue canceled pending=%d active=%d", len(q.pending), len(q.active))
	}
	q.pending = nil
	// Aborted calls keep their slot until run observes the return.
	for e := range q.active {
		e.cancel()
	}
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{Pending: len(q.pending), Active: len(q.active)}
}

// Close cancels all work, rejects further submissions and waits for
// in-flight calls to return.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cancelLocked()
	q.mu.Unlock()
	q.wg.Wait()
}
