package runner

import (
	"math"
	"time"
)

// RetryStrategy returns how long to wait before retry attempt+1. attempt
// starts at 0 for the first failure.
type RetryStrategy interface {
	SleepDuration(attempt int, err error) time.Duration
}

// NoDelayStrategy retries immediately.
type NoDelayStrategy struct{}

func (NoDelayStrategy) SleepDuration(int, error) time.Duration { return 0 }

// ConstantDelayStrategy waits the same delay between attempts.
type ConstantDelayStrategy struct {
	Delay time.Duration
}

func (s ConstantDelayStrategy) SleepDuration(int, error) time.Duration { return s.Delay }

// ExponentialBackoffStrategy waits Base*Factor^attempt, capped at Max when Max > 0.
type ExponentialBackoffStrategy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

func (e ExponentialBackoffStrategy) SleepDuration(attempt int, _ error) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(e.Base) * math.Pow(factor, float64(attempt)))
	if e.Max > 0 && (delay > e.Max || delay < 0) {
		return e.Max
	}
	return delay
}
