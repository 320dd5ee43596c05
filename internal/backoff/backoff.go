// Package backoff computes reconnect delays and wraps timer creation so a
// zero/negative delay can disable waiting entirely.
package backoff

import (
	"math/rand"
	"time"
)

// Policy describes an exponential backoff schedule with jitter.
type Policy struct {
	Initial time.Duration // delay before the first retry
	Max     time.Duration // upper bound on any delay
	Factor  float64       // multiplier between attempts
	Jitter  float64       // fraction of the delay randomized (0..1)
}

// Default is the reconnect schedule used when the caller configures nothing.
var Default = Policy{
	Initial: 500 * time.Millisecond,
	Max:     30 * time.Second,
	Factor:  2.0,
	Jitter:  0.2,
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.Initial)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
		if d >= float64(p.Max) {
			d = float64(p.Max)
			break
		}
	}
	if p.Jitter > 0 {
		// Spread delays so a fleet of clients doesn't reconnect in lockstep.
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	if d > float64(p.Max) {
		d = float64(p.Max)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// After returns a channel that fires after d, or nil when d <= 0.
// A nil channel blocks forever in a select, which callers use as the
// "waiting disabled" sentinel instead of scheduling a real timer.
func After(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return nil
	}
	return time.After(d)
}
