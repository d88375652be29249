package application

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// MonotonicClock hands out strictly increasing UTC timestamps at microsecond
// resolution, so two log entries never share a createdAt.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	wall func() time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{wall: time.Now}
}

// NewMonotonicClockFrom is used by tests to pin the wall clock.
func NewMonotonicClockFrom(wall func() time.Time) *MonotonicClock {
	return &MonotonicClock{wall: wall}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.wall().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
