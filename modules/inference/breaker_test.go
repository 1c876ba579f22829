package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

// TestBreakerOpensAfterThreshold walks the breaker through a failure run,
// the open window and the probe that follows it.
func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := newClock()
	cb := NewCircuitBreaker(3, 3*time.Second, clock.Now)

	for i := 1; i <= 2; i++ {
		assert.True(t, cb.Allow())
		assert.Equal(t, int64(i), cb.RecordFailure())
		assert.Equal(t, CircuitClosed, cb.State())
	}
	assert.True(t, cb.Allow())
	assert.Equal(t, int64(3), cb.RecordFailure())
	assert.Equal(t, CircuitOpen, cb.State())

	clock.Advance(time.Second)
	assert.False(t, cb.Allow(), "inside the open window")
	assert.Equal(t, CircuitOpen, cb.State())

	clock.Advance(2100 * time.Millisecond)
	assert.True(t, cb.Allow(), "window elapsed, probe allowed")
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, int64(0), cb.Failures())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	clock := newClock()
	cb := NewCircuitBreaker(3, time.Second, clock.Now)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, int64(0), cb.Failures())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State(), "streak restarted after success")
}

func TestBreakerClampsSettings(t *testing.T) {
	clock := newClock()
	cb := NewCircuitBreaker(0, 0, clock.Now)

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State(), "threshold below one acts as one")
	assert.False(t, cb.Allow())

	clock.Advance(time.Millisecond)
	assert.True(t, cb.Allow())
}
