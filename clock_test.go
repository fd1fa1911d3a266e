package simtemp

import (
	"sync"
	"testing"
	"time"

	"github.com/AlonsoVallejo/simtemp/internal/wallclock"
)

type (
	// fakeClock drives the engine's timer by hand and records every
	// duration the timer is armed with.
	fakeClock struct {
		mu    sync.Mutex
		now   time.Time
		timer *fakeTimer
		armed chan time.Duration
	}

	fakeTimer struct {
		clock *fakeClock
		ch    chan time.Time
	}
)

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Unix(1000, 0),
		armed: make(chan time.Duration, 16),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After is unused by the engine itself; the channel never fires.
func (c *fakeClock) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func (c *fakeClock) NewTimer(d time.Duration) wallclock.Timer {
	t := &fakeTimer{clock: c, ch: make(chan time.Time, 1)}
	c.mu.Lock()
	c.timer = t
	c.mu.Unlock()
	c.armed <- d
	return t
}

func (t *fakeTimer) C() <-chan time.Time {
	return t.ch
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.armed <- d
	return true
}

func (t *fakeTimer) Stop() bool {
	return true
}

// fire advances the clock by the period and expires the timer.
func (c *fakeClock) fire(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	t := c.timer
	c.mu.Unlock()
	t.ch <- now
}

// waitArm returns the next duration the engine armed the timer with.
func (c *fakeClock) waitArm(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.armed:
		return d
	case <-time.After(time.Second):
		t.Fatal("timer not armed")
		return 0
	}
}
