package collector

import (
	"context"
	"sync"
	"time"

	"gopkg.in/src-d/go-log.v1"
)

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	CheckLimit() (remaining int, resetTime time.Time, err error)
	UpdateLimit(remaining int, resetTime time.Time)
}

const (
	defaultRemaining = 5000
	lowWatermark     = 10
)

type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	minDelay  time.Duration
	lastCall  time.Time
	logger    log.Logger
}

// NewRateLimiter creates a rate limiter that spaces calls by minDelay and
// sleeps until the reset time once the remaining budget runs low
func NewRateLimiter(minDelay time.Duration, logger log.Logger) RateLimiter {
	return &githubRateLimiter{
		remaining: defaultRemaining,
		resetTime: time.Now().Add(time.Hour),
		minDelay:  minDelay,
		logger:    logger,
	}
}

// Wait blocks until it is safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remaining <= lowWatermark {
		if d := time.Until(r.resetTime); d > 0 {
			r.logger.Warningf("rate limit low (%d remaining), waiting %v until reset", r.remaining, d.Round(time.Second))
			if err := r.sleep(ctx, d); err != nil {
				return err
			}
			r.logger.Infof("rate limit reset, continuing")
		}
		r.remaining = defaultRemaining
		r.resetTime = time.Now().Add(time.Hour)
	}

	if elapsed := time.Since(r.lastCall); elapsed < r.minDelay {
		if err := r.sleep(ctx, r.minDelay-elapsed); err != nil {
			return err
		}
	}

	r.lastCall = time.Now()
	return nil
}

// sleep releases the lock while waiting. Must be called with r.mu held.
func (r *githubRateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CheckLimit returns the current rate limit status
func (r *githubRateLimiter) CheckLimit() (remaining int, resetTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.resetTime, nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
