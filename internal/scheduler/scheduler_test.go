package scheduler

import (
	"math/rand/v2"
	"testing"

	"campaign_feed/internal/domain"
)

type fixedRNG int

func (f fixedRNG) IntN(n int) int { return min(int(f), n-1) }

func TestNewsFiresOneToThreeTimesIn200Ticks(t *testing.T) {
	for seed := uint64(1); seed <= 100; seed++ {
		s := New(Config{News: Interval{Min: 60, Max: 90}, Rival: Interval{Min: 90, Max: 120}}, rand.New(rand.NewPCG(seed, seed)))
		s.Arm(0)

		var fired []int
		for tick := 1; tick <= 200; tick++ {
			expected, _ := s.Next()
			for _, kind := range s.Check(tick) {
				if kind != domain.EventNews {
					continue
				}
				if tick != expected {
					t.Fatalf("seed=%d news fired at %d, armed for %d", seed, tick, expected)
				}
				fired = append(fired, tick)
			}
		}
		if len(fired) < 1 || len(fired) > 3 {
			t.Fatalf("seed=%d news fired %d times: %v", seed, len(fired), fired)
		}
		prev := 0
		for _, tick := range fired {
			if gap := tick - prev; gap < 60 || gap > 90 {
				t.Fatalf("seed=%d gap=%d outside re-arm interval: %v", seed, gap, fired)
			}
			prev = tick
		}
	}
}

func TestRivalUsesShortInitialInterval(t *testing.T) {
	s := New(Config{}, fixedRNG(1000))
	s.Arm(10)
	news, rival := s.Next()
	if news != 100 || rival != 70 {
		t.Fatalf("armed news=%d rival=%d want=100,70", news, rival)
	}
	if due := s.Check(70); len(due) != 1 || due[0] != domain.EventRivalPost {
		t.Fatalf("due at 70=%v", due)
	}
	if _, rival := s.Next(); rival != 190 {
		t.Fatalf("re-armed rival=%d want=190", rival)
	}
}

func TestCheckFiresOncePerKindAfterLongGap(t *testing.T) {
	s := New(Config{}, fixedRNG(0))
	s.Arm(0)
	due := s.Check(10000)
	if len(due) != 2 {
		t.Fatalf("due=%v want one news and one rival", due)
	}
	if due := s.Check(10001); len(due) != 0 {
		t.Fatalf("backlog fired: %v", due)
	}
	news, rival := s.Next()
	if news != 10060 || rival != 10090 {
		t.Fatalf("re-armed news=%d rival=%d", news, rival)
	}
}

func TestRestoreKeepsCounters(t *testing.T) {
	s := New(Config{}, fixedRNG(0))
	s.Restore(50, 75, 0)
	news, rival := s.Next()
	if news != 75 || rival != 80 {
		t.Fatalf("restored news=%d rival=%d want=75,80", news, rival)
	}
}
