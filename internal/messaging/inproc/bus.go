package inproc

import (
	"errors"
	"fmt"
	"sync"

	"campaign_feed/internal/domain"
)

var (
	ErrSubscriberNotRegistered = errors.New("subscriber is not registered in bus")
	ErrSubscriberFull          = errors.New("subscriber queue is full")
)

// Bus fans feed events out to every registered subscriber. A slow
// subscriber loses events rather than blocking the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.FeedEvent
	buffer int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan domain.FeedEvent),
		buffer: buffer,
	}
}

func (b *Bus) Subscribe(id string) <-chan domain.FeedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		return ch
	}
	ch := make(chan domain.FeedEvent, b.buffer)
	b.subs[id] = ch
	return ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Publish delivers ev to every subscriber. The returned error wraps
// ErrSubscriberFull once per subscriber that dropped the event.
func (b *Bus) Publish(ev domain.FeedEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var errs []error
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			errs = append(errs, fmt.Errorf("subscriber %s: %w", id, ErrSubscriberFull))
		}
	}
	return errors.Join(errs...)
}

// SendTo delivers ev to a single subscriber.
func (b *Bus) SendTo(id string, ev domain.FeedEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subs[id]
	if !ok {
		return ErrSubscriberNotRegistered
	}
	select {
	case ch <- ev:
		return nil
	default:
		return ErrSubscriberFull
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
