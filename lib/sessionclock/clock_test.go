package sessionclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickRemaining(t *testing.T) {
	t.Parallel()
	for _, d := range []int{1, 3, 60, 3600} {
		c := New(d)
		for elapsed := 0; elapsed <= d; elapsed++ {
			require.Equal(t, max(0, d-elapsed), c.Tick(elapsed), "duration %d elapsed %d", d, elapsed)
		}
	}
}

func TestTickFloorsAtZero(t *testing.T) {
	t.Parallel()
	c := New(10)
	assert.Equal(t, 0, c.Tick(10))
	assert.Equal(t, 0, c.Tick(11))
	assert.Equal(t, 0, c.Tick(1000))
}

func TestObserveDeduplicatesWithinSecond(t *testing.T) {
	t.Parallel()
	c := New(3)

	var got []Progress
	for elapsed := time.Duration(0); elapsed < 3*time.Second; elapsed += 100 * time.Millisecond {
		if p, ok := c.Observe(elapsed); ok {
			got = append(got, p)
		}
	}

	assert.Equal(t, []Progress{
		{Elapsed: 0, Remaining: 3},
		{Elapsed: 1, Remaining: 2},
		{Elapsed: 2, Remaining: 1},
	}, got)
}

func TestObserveSkippedSeconds(t *testing.T) {
	t.Parallel()
	c := New(60)

	p, ok := c.Observe(500 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 60, p.Remaining)

	// a stall across several seconds still yields a single emission
	p, ok = c.Observe(4200 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, Progress{Elapsed: 4, Remaining: 56}, p)

	_, ok = c.Observe(4900 * time.Millisecond)
	assert.False(t, ok)
}

func TestDone(t *testing.T) {
	t.Parallel()
	c := New(2)
	assert.False(t, c.Done(1999*time.Millisecond))
	assert.True(t, c.Done(2*time.Second))
	assert.True(t, c.Done(3*time.Second))
	assert.Equal(t, 2, c.Duration())
}
