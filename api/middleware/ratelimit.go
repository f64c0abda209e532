package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/models"
	"golang.org/x/time/rate"
)

const (
	idleTTL       = time.Hour
	sweepInterval = 5 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per identity. Idle buckets are
// dropped during lookups, at most once per sweepInterval.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{
		limit:   limit,
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (s *limiterSet) get(identity string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		for id, b := range s.buckets {
			if now.Sub(b.lastSeen) > idleTTL {
				delete(s.buckets, id)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[identity] = b
	}
	b.lastSeen = now
	return b.limiter
}

// RateLimit applies a token bucket per caller, keyed by API key when Auth
// set one and by client IP otherwise. Rejected requests get 429 with a
// Retry-After hint.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	set := newLimiterSet(cfg)

	return func(c *gin.Context) {
		identity := c.GetString(IdentityKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		lim := set.get(identity)
		if !lim.Allow() {
			if lim.Limit() > 0 && lim.Limit() != rate.Inf {
				wait := math.Ceil(1 / float64(lim.Limit()))
				c.Header("Retry-After", strconv.Itoa(int(wait)))
			}
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "rate limit exceeded, retry later")
			return
		}
		c.Next()
	}
}
