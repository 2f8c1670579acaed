package engine

import "time"

// Clock supplies award and badge timestamps.
//
// Production code uses SystemClock. Tests pass a fixed clock so that golden
// output and assertions are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
