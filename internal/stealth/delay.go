package stealth

import (
	"context"
	"math/rand/v2"
	"time"
)

// DelayProfile defines a named pacing configuration.
type DelayProfile string

const (
	ProfileNone       DelayProfile = "none"
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
)

// HumanDelay adds randomized pauses between identity launches so a batch
// of profiles does not come online in a machine-regular rhythm.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewHumanDelay creates a delay generator for the given profile.
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	switch profile {
	case ProfileNone:
		return &HumanDelay{}
	case ProfileCautious:
		return &HumanDelay{MinDelay: 5 * time.Second, MaxDelay: 15 * time.Second}
	case ProfileAggressive:
		return &HumanDelay{MinDelay: 200 * time.Millisecond, MaxDelay: time.Second}
	default: // normal
		return &HumanDelay{MinDelay: time.Second, MaxDelay: 4 * time.Second}
	}
}

// Wait sleeps for a random duration within the configured range.
func (h *HumanDelay) Wait(ctx context.Context) error {
	d := h.Next()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next pause length.
func (h *HumanDelay) Next() time.Duration {
	if h.MinDelay >= h.MaxDelay {
		return h.MinDelay
	}
	return h.MinDelay + time.Duration(rand.Int64N(int64(h.MaxDelay-h.MinDelay)))
}
