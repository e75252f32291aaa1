package hw

import "time"

// DefaultSpins bounds a readiness poll when Waiter.Spins is zero. At 8 MHz
// this is well above the datasheet start-up time of any clock source.
const DefaultSpins = 200_000

// Waiter is a bounded poll for a hardware status condition.
type Waiter struct {
	// Spins is the maximum number of polls. Zero means DefaultSpins.
	Spins int
	// Timeout, when non-zero, also ends the wait once elapsed.
	Timeout time.Duration
	// Now is the clock used with Timeout. Defaults to time.Now.
	Now func() time.Time
}

// Until polls cond until it reports true and returns false if the budget runs
// out first.
func (w Waiter) Until(cond func() bool) bool {
	spins := w.Spins
	if spins <= 0 {
		spins = DefaultSpins
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	var deadline time.Time
	if w.Timeout > 0 {
		deadline = now().Add(w.Timeout)
	}
	for i := 0; i < spins; i++ {
		if cond() {
			return true
		}
		if w.Timeout > 0 && !now().Before(deadline) {
			return false
		}
	}
	return false
}
