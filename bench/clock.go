// Package bench times repeated calls of an operation.
package bench

import "time"

// A Clock is a monotonic tick counter.
type Clock interface {
	// Frequency returns the number of ticks per second.
	Frequency() (uint64, error)

	// Ticks returns the current counter value.
	Ticks() (uint64, error)
}

// MonotonicClock counts nanoseconds on the runtime's monotonic clock.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock counting from now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Frequency returns one tick per nanosecond.
func (c *MonotonicClock) Frequency() (uint64, error) {
	return uint64(time.Second / time.Nanosecond), nil
}

// Ticks returns the nanoseconds since the clock was created.
func (c *MonotonicClock) Ticks() (uint64, error) {
	return uint64(time.Since(c.start)), nil
}
