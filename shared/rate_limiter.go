package shared

import (
	"sync"
	"time"
)

// RequestRateLimiter enforces a minimum delay between outbound requests.
// The crawlers use it as a politeness delay when walking board pages so we
// do not hammer the communities we scrape.
type RequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewRequestRateLimiter creates a rate limiter with the given minimum delay.
func NewRequestRateLimiter(minimumDelay time.Duration) *RequestRateLimiter {
	return &RequestRateLimiter{
		minimumDelay:    minimumDelay,
		lastRequestTime: time.Now(),
	}
}

// Wait blocks until the minimum delay has elapsed since the last request.
func (limiter *RequestRateLimiter) Wait() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	elapsed := time.Since(limiter.lastRequestTime)
	if elapsed < limiter.minimumDelay {
		time.Sleep(limiter.minimumDelay - elapsed)
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// RequestCount returns the total number of requests processed.
func (limiter *RequestRateLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
