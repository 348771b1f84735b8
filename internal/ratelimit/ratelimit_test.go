package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestAllowPerKey(t *testing.T) {
	l := NewInMemoryLimiter(1, time.Hour, 2)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))

	assert.True(t, l.Allow("u2"))
}

func TestDefaults(t *testing.T) {
	l := NewInMemoryLimiter(0, time.Hour, 0)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewInMemoryLimiter(1, time.Second, 1).WithClock(clock)

	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	clock.Advance(30 * time.Second)
	assert.True(t, l.Allow("u2"))
	assert.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Sweep(time.Minute))
	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Equal(t, 1, l.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Allow("u1"))
}

func TestSweepKeepsBucketsUntilRefilled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewInMemoryLimiter(1, time.Hour, 2).WithClock(clock)

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	clock.Advance(time.Minute)

	assert.Equal(t, 0, l.Sweep(time.Second))
	assert.False(t, l.Allow("u1"))
}
