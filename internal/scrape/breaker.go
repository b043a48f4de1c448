package scrape

import "sync/atomic"

// Breaker suspends scraping after a run of consecutive driver-fatal
// failures, so a broken Chromium install does not burn through the account
// pool. Account-attributed failures never count; only driver-level ones do.
type Breaker struct {
	threshold   int64
	consecutive atomic.Int64
	tripped     atomic.Bool
}

// NewBreaker creates a breaker that trips after threshold consecutive
// driver-fatal failures. A threshold of zero or less disables tripping.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: int64(threshold)}
}

// Allow reports whether a new scrape attempt may start.
func (b *Breaker) Allow() bool {
	return !b.tripped.Load()
}

// Tripped reports whether the breaker is open.
func (b *Breaker) Tripped() bool {
	return b.tripped.Load()
}

// RecordFatal counts one driver-fatal failure and trips the breaker when
// the run reaches the threshold.
func (b *Breaker) RecordFatal() {
	if b.threshold <= 0 {
		return
	}
	if b.consecutive.Add(1) >= b.threshold {
		b.tripped.Store(true)
	}
}

// RecordHealthy ends the current failure run.
func (b *Breaker) RecordHealthy() {
	b.consecutive.Store(0)
}

// Reset clears the failure run and closes the breaker. Operator action.
func (b *Breaker) Reset() {
	b.consecutive.Store(0)
	b.tripped.Store(false)
}
