package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every FakeClock starts at unless told otherwise.
var Epoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// FakeClock is a manually driven clock for tests.
//
// Unlike engine.SystemClock, FakeClock only moves when Set or Advance is
// called, so award timestamps in assertions and golden files are stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t, normalized to UTC.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
