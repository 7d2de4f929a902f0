package ratelimit

import "time"

// Pacer defines the interface for spacing out consecutive requests.
type Pacer interface {
	// Wait blocks until the next request may be issued.
	Wait()
	// Delay reports the configured inter-request delay.
	Delay() time.Duration
}

// FixedDelay implements Pacer with a constant delay between requests. The
// delay is kept decomposed into whole seconds plus a sub-second remainder;
// the decomposition is a scheduling detail and never changes the total.
type FixedDelay struct {
	seconds   int64
	remainder time.Duration
}

// NewFixedDelay creates a pacer from a millisecond count. Negative input is
// clamped to zero; zero means no delay.
func NewFixedDelay(ms int) *FixedDelay {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	return &FixedDelay{
		seconds:   int64(d / time.Second),
		remainder: d % time.Second,
	}
}

// Delay returns the recomposed total delay.
func (f *FixedDelay) Delay() time.Duration {
	return time.Duration(f.seconds)*time.Second + f.remainder
}

// Wait sleeps for the full configured delay.
func (f *FixedDelay) Wait() {
	if d := f.Delay(); d > 0 {
		time.Sleep(d)
	}
}
