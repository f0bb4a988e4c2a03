package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterRegistry manages one token bucket per participant.
type RateLimiterRegistry struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiterRegistry creates a registry admitting count messages per
// period for each participant, with a burst of count. A non-positive count
// or period disables limiting.
func NewRateLimiterRegistry(count int, period time.Duration) *RateLimiterRegistry {
	r := &RateLimiterRegistry{
		limit:    rate.Inf,
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
	if count > 0 && period > 0 {
		r.limit = rate.Limit(float64(count) / period.Seconds())
		r.burst = count
	}
	return r
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
func (r *RateLimiterRegistry) GetOrCreate(id string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[id]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[id]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(r.limit, r.burst)
	r.limiters[id] = limiter
	return limiter
}

// AllowAt reports whether participant id may send a message at t.
func (r *RateLimiterRegistry) AllowAt(id string, t time.Time) bool {
	return r.GetOrCreate(id).AllowN(t, 1)
}

// Delete removes the limiter of participant id.
func (r *RateLimiterRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.limiters, id)
}

// Len returns the number of tracked participants.
func (r *RateLimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}
