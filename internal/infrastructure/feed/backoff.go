package feed

import (
	"math/rand"
	"time"
)

const (
	DefaultBackoffBase   = 1 * time.Second
	DefaultBackoffMax    = 60 * time.Second
	DefaultBackoffJitter = 0.2
)

// Backoff produces exponential reconnect delays with jitter:
// min(max, base*2^attempt) ± jitter. Not safe for concurrent use; the
// supervisor's run loop is its only caller.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64 // fraction of the delay, e.g. 0.2 for ±20%

	attempt int
	randFn  func() float64 // in [0,1), swappable in tests
}

func NewBackoff(base, max time.Duration, jitter float64) *Backoff {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Backoff{Base: base, Max: max, Jitter: jitter, randFn: rand.Float64}
}

// Next returns the delay for the current attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	d := b.Base
	for i := 0; i < b.attempt; i++ {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	b.attempt++

	if b.Jitter > 0 {
		// uniform in [-jitter, +jitter]
		f := (b.randFn()*2 - 1) * b.Jitter
		d += time.Duration(float64(d) * f)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// Reset zeroes the attempt counter; called on every successful subscribe.
func (b *Backoff) Reset() { b.attempt = 0 }

func (b *Backoff) Attempt() int { return b.attempt }
