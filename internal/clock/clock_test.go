package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed_NeverNegative(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, Elapsed(start, start))
	assert.Equal(t, 0, Elapsed(start, start.Add(-5*time.Second)))
	assert.Equal(t, 0, Elapsed(start, start.Add(999*time.Millisecond)))
}

func TestElapsed_FloorsToWholeSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, Elapsed(start, start.Add(1999*time.Millisecond)))
	assert.Equal(t, 3600, Elapsed(start, start.Add(time.Hour)))
}

func TestElapsed_MonotonicAndIndependentOfTicks(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewManual(start)

	last := 0
	for i := 0; i < 50; i++ {
		// irregular jumps stand in for missed ticks
		c.Advance(time.Duration(i%7) * 700 * time.Millisecond)
		got := Elapsed(start, c.Now())
		assert.GreaterOrEqual(t, got, last)
		assert.Equal(t, int(c.Now().Sub(start)/time.Second), got)
		last = got
	}
}

func TestManual_Set(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewManual(start)
	later := start.Add(42 * time.Minute)

	c.Set(later)
	assert.Equal(t, later, c.Now())
}
