package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDomainMax = 2268589

func TestThreshold_InitialValueClamped(t *testing.T) {
	assert.Equal(t, 1.0, NewThreshold(0, 1, testDomainMax, nil).Get())
	assert.Equal(t, 500.0, NewThreshold(500, 1, testDomainMax, nil).Get())
	assert.Equal(t, float64(testDomainMax), NewThreshold(1e9, 1, testDomainMax, nil).Get())
}

func TestThreshold_Set(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC))
	th := NewThreshold(1, 1, testDomainMax, clock)

	clock.Advance(time.Minute)
	change, changed := th.Set(500000)

	require.True(t, changed)
	assert.Equal(t, 500000.0, change.LowerBound)
	assert.Equal(t, 1.0, change.Previous)
	assert.Equal(t, clock.Now().UTC(), change.UpdatedAt)
	assert.Equal(t, 500000.0, th.Get())
	assert.Equal(t, clock.Now().UTC(), th.UpdatedAt())
}

func TestThreshold_SetClamps(t *testing.T) {
	th := NewThreshold(1, 1, testDomainMax, nil)

	th.Set(-5)
	assert.Equal(t, 1.0, th.Get())

	th.Set(testDomainMax * 3)
	assert.Equal(t, float64(testDomainMax), th.Get())

	th.Set(math.NaN())
	assert.Equal(t, 1.0, th.Get())
}

func TestThreshold_SetSameValue(t *testing.T) {
	th := NewThreshold(10, 1, testDomainMax, nil)
	calls := 0
	th.Subscribe(func(ThresholdChange) { calls++ })

	_, changed := th.Set(10)

	assert.False(t, changed)
	assert.Equal(t, 0, calls)
}

func TestThreshold_SubscribersNotified(t *testing.T) {
	th := NewThreshold(1, 1, testDomainMax, nil)
	var got []ThresholdChange
	th.Subscribe(func(c ThresholdChange) { got = append(got, c) })

	th.Set(100)
	th.Set(200)

	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].LowerBound)
	assert.Equal(t, 100.0, got[1].Previous)
	assert.Equal(t, 200.0, got[1].LowerBound)
}

func TestThreshold_SubscribeDuringNotification(t *testing.T) {
	th := NewThreshold(1, 1, testDomainMax, nil)
	late := 0
	th.Subscribe(func(ThresholdChange) {
		th.Subscribe(func(ThresholdChange) { late++ })
	})

	th.Set(100)
	assert.Zero(t, late, "listener added mid-notification waits for the next change")

	th.Set(200)
	assert.Equal(t, 1, late)
}

func TestThreshold_Range(t *testing.T) {
	lo, hi := NewThreshold(1, 1, testDomainMax, nil).Range()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, float64(testDomainMax), hi)
}
