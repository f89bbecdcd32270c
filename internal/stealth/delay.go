package stealth

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// DelayProfile names a politeness delay configuration.
type DelayProfile string

const (
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
	ProfileFixed      DelayProfile = "fixed"
)

// HumanDelay spaces out successive requests with a randomized pause. The
// first request goes out immediately.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	mu      sync.Mutex
	started bool
}

// NewHumanDelay creates a delay for the given profile. Every profile keeps
// the pause between one and six seconds.
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	switch profile {
	case ProfileCautious:
		return &HumanDelay{MinDelay: 3 * time.Second, MaxDelay: 6 * time.Second}
	case ProfileAggressive:
		return &HumanDelay{MinDelay: 1 * time.Second, MaxDelay: 2 * time.Second}
	case ProfileFixed:
		return &HumanDelay{MinDelay: 3 * time.Second, MaxDelay: 3 * time.Second}
	default: // normal
		return &HumanDelay{MinDelay: 2 * time.Second, MaxDelay: 4 * time.Second}
	}
}

// Wait sleeps before every request but the first.
func (h *HumanDelay) Wait(ctx context.Context) error {
	h.mu.Lock()
	first := !h.started
	h.started = true
	h.mu.Unlock()
	if first {
		return nil
	}

	t := time.NewTimer(h.RequestDelay())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestDelay returns a random delay for the next request.
func (h *HumanDelay) RequestDelay() time.Duration {
	return h.randomBetween(h.MinDelay, h.MaxDelay)
}

func (h *HumanDelay) randomBetween(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}
