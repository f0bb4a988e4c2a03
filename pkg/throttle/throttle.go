package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits at most one event per interval.
type Limiter struct {
	interval time.Duration

	mu  sync.Mutex
	lim *rate.Limiter
}

// New returns a limiter that admits count events per period, spaced evenly:
// the minimum gap between admitted events is period / count.
func New(count int, period time.Duration) *Limiter {
	if count <= 0 {
		count = 1
	}
	return Every(period / time.Duration(count))
}

// Every returns a limiter with the given minimum gap between events. A
// non-positive interval admits everything.
func Every(interval time.Duration) *Limiter {
	if interval < 0 {
		interval = 0
	}
	return &Limiter{
		interval: interval,
		lim:      newRateLimiter(interval),
	}
}

func newRateLimiter(interval time.Duration) *rate.Limiter {
	if interval == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Interval returns the minimum gap between admitted events.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Allow reports whether an event happening now may be emitted.
func (l *Limiter) Allow() bool {
	return l.AllowAt(time.Now())
}

// AllowAt reports whether an event at t may be emitted. An admitted event
// starts a new interval.
func (l *Limiter) AllowAt(t time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lim.AllowN(t, 1)
}

// ForceAt records an event at t that is emitted regardless of the interval,
// such as the first or last point of a stroke. The next interval starts at t.
func (l *Limiter) ForceAt(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lim = newRateLimiter(l.interval)
	l.lim.AllowN(t, 1)
}
