package game

import (
	"context"
	"log"
	"sync"
	"time"
)

// Ticker is the logical clock a Driver advances.
type Ticker interface {
	Tick() int
}

// Driver calls Tick at a fixed wall-clock cadence. While paused the clock
// simply receives no ticks.
type Driver struct {
	clock    Ticker
	interval time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	paused bool

	wg sync.WaitGroup
}

func NewDriver(clock Ticker, interval time.Duration, logger *log.Logger) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{clock: clock, interval: interval, logger: logger}
}

func (d *Driver) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop(ctx)
	}()
}

func (d *Driver) Wait() {
	d.wg.Wait()
}

func (d *Driver) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.Paused() {
				continue
			}
			d.clock.Tick()
		}
	}
}

func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.paused {
		d.paused = true
		d.logger.Printf("tick driver paused")
	}
}

func (d *Driver) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused {
		d.paused = false
		d.logger.Printf("tick driver resumed")
	}
}

func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}
