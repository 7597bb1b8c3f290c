package dataset

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ThresholdChange describes a lower bound update.
type ThresholdChange struct {
	LowerBound float64   `json:"lower_bound"`
	Previous   float64   `json:"previous"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Threshold is the session's filter lower bound. Set clamps to the slider
// range [min, max]; subscribers are called synchronously after a change.
type Threshold struct {
	mu        sync.RWMutex
	value     float64
	min, max  float64
	updatedAt time.Time
	clock     clockwork.Clock
	listeners []func(ThresholdChange)
}

// NewThreshold creates a threshold with slider range [minV, maxV], starting
// at initial (clamped).
func NewThreshold(initial, minV, maxV float64, clock clockwork.Clock) *Threshold {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Threshold{
		value:     clamp(initial, minV, maxV),
		min:       minV,
		max:       maxV,
		updatedAt: clock.Now().UTC(),
		clock:     clock,
	}
}

// Get returns the current lower bound.
func (t *Threshold) Get() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Range returns the slider range.
func (t *Threshold) Range() (float64, float64) {
	return t.min, t.max
}

// UpdatedAt returns when the value last changed.
func (t *Threshold) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

// Set stores v clamped to the slider range. It reports the change and
// whether the value actually moved.
func (t *Threshold) Set(v float64) (ThresholdChange, bool) {
	t.mu.Lock()
	v = clamp(v, t.min, t.max)
	if v == t.value {
		change := ThresholdChange{LowerBound: v, Previous: v, UpdatedAt: t.updatedAt}
		t.mu.Unlock()
		return change, false
	}
	change := ThresholdChange{LowerBound: v, Previous: t.value, UpdatedAt: t.clock.Now().UTC()}
	t.value = v
	t.updatedAt = change.UpdatedAt
	listeners := slices.Clone(t.listeners)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return change, true
}

// Subscribe registers fn to run after every change.
func (t *Threshold) Subscribe(fn func(ThresholdChange)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
