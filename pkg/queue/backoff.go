package queue

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt.
// Attempt starts at 1 for the first retry. Implementations must be safe for
// concurrent use.
type BackoffStrategy interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay on each attempt, capped at
// MaxInterval. With the defaults the retry schedule is 2, 4, 8 minutes.
//
// Other subsystems of the platform historically hard-coded the 2/4/8
// sequence; the parameters here are deliberately configurable so both
// behaviors express the same formula.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1), MaxInterval).
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 2 * time.Minute
	}
	max := e.MaxInterval
	if max == 0 {
		max = 30 * time.Minute
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(max) {
		interval = float64(max)
	}
	return time.Duration(interval)
}

// FixedBackoff waits the same interval before every retry. Mostly useful in
// tests.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy returns the documented notification retry policy:
// two minutes doubling per attempt, capped at thirty minutes.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 2 * time.Minute,
		MaxInterval:     30 * time.Minute,
		Multiplier:      2,
	}
}
