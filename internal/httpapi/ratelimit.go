package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/synapse-sync/core/internal/auth"
)

// RateLimitInfo configures a per-user token bucket: MaxRequests per
// WindowSeconds, with Burst as the bucket's capacity (allowed burst above
// the steady-state rate).
type RateLimitInfo struct {
	WindowSeconds int
	MaxRequests   int
	Burst         int
}

// TokenBucket refills at a constant rate up to a capacity; Allow consumes a
// token if one is available. Buckets live in-process only, one per user; a
// multi-instance deployment would need this backed by Redis instead.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a token is available and consumes it if so, plus
// nextTokenTime (Retry-After) and fullResetTime (X-RateLimit-Reset).
func (tb *TokenBucket) Allow() (bool, int, time.Time, time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	tokensNeeded := tb.capacity - tb.tokens
	fullResetTime := now.Add(time.Duration(tokensNeeded/tb.refillRate) * time.Second)

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, int(tb.tokens), now, fullResetTime
	}

	tokensUntilNext := 1.0 - tb.tokens
	secondsUntilNext := tokensUntilNext / tb.refillRate
	nextTokenTime := now.Add(time.Duration(secondsUntilNext) * time.Second)

	return false, 0, nextTokenTime, fullResetTime
}

type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitInfo
	mu      sync.RWMutex
}

func NewRateLimiter(config RateLimitInfo) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) getBucket(userID string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[userID]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if bucket, exists := rl.buckets[userID]; exists {
		return bucket
	}

	refillRate := float64(rl.config.MaxRequests) / float64(rl.config.WindowSeconds)
	bucket = NewTokenBucket(rl.config.Burst, refillRate)
	rl.buckets[userID] = bucket
	return bucket
}

func (rl *RateLimiter) Allow(userID string) (bool, int, time.Time, time.Time) {
	bucket := rl.getBucket(userID)
	return bucket.Allow()
}

// cleanupLoop evicts buckets idle for over an hour so memory doesn't grow
// with every user that has ever made a request.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for userID, bucket := range rl.buckets {
			bucket.mu.Lock()
			if time.Since(bucket.lastRefill) > time.Hour {
				delete(rl.buckets, userID)
			}
			bucket.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware builds a per-route rate limiter: each call gets its
// own RateLimiter instance, so different endpoints can carry different
// limits.
func RateLimitMiddleware(config RateLimitInfo) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserID(r.Context())
			if userID == uuid.Nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, nextTokenTime, fullResetTime := limiter.Allow(userID.String())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(fullResetTime.Unix(), 10))
			w.Header().Set("X-RateLimit-Burst", strconv.Itoa(config.Burst))

			if !allowed {
				retryAfter := int(time.Until(nextTokenTime).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Str("user_id", userID.String()).
					Str("path", r.URL.Path).
					Int("retry_after", retryAfter).
					Msg("rate limit exceeded")

				writeError(w, r, http.StatusTooManyRequests, "rate_limited",
					"rate limit exceeded, retry after "+strconv.Itoa(retryAfter)+" seconds")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
