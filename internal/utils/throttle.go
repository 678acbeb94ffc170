package utils

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle allows at most limit operations per interval, refilling evenly across it
type Throttle struct {
	limit    int
	interval time.Duration
	now      func() time.Time
	limiter  *rate.Limiter
}

// NewThrottle creates a throttle; invalid parameters fall back to 100 per second
func NewThrottle(limit int, interval time.Duration) *Throttle {
	return newThrottle(limit, interval, time.Now)
}

func newThrottle(limit int, interval time.Duration, now func() time.Time) *Throttle {
	if limit <= 0 || interval <= 0 {
		limit = 100
		interval = time.Second
	}
	return &Throttle{
		limit:    limit,
		interval: interval,
		now:      now,
		limiter:  rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit),
	}
}

// Allow takes a token if one is available
func (t *Throttle) Allow() bool {
	return t.limiter.AllowN(t.now(), 1)
}
