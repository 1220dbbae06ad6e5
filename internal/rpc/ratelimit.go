package rpc

import (
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// clientIdle is how long a client's limiter is kept after its last request.
const clientIdle = 10 * time.Minute

// clientLimiter hands out one token bucket per client IP. Buckets of idle
// clients expire from the cache.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *cache.Cache
}

// newClientLimiter returns nil when perSecond is zero, which disables limiting.
func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(math.Ceil(perSecond))
	}
	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: cache.New(clientIdle, clientIdle/2),
	}
}

// allow spends one token from ip's bucket.
func (c *clientLimiter) allow(ip string) bool {
	if c == nil {
		return true
	}
	return c.bucket(ip).Allow()
}

func (c *clientLimiter) bucket(ip string) *rate.Limiter {
	if v, ok := c.buckets.Get(ip); ok {
		c.buckets.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(c.limit, c.burst)
	if err := c.buckets.Add(ip, l, cache.DefaultExpiration); err != nil {
		// Lost a race with another request from the same client.
		if v, ok := c.buckets.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}
