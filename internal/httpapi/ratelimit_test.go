package httpapi

import (
	"testing"
	"time"
)

func TestTokenBucketAllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(5, 1.0)
	for i := 0; i < 5; i++ {
		allowed, _, _, _ := tb.Allow()
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	allowed, _, _, _ := tb.Allow()
	if allowed {
		t.Fatal("expected capacity to be exhausted")
	}
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	tb := NewTokenBucket(1, 100.0) // refill fast for a short test
	allowed, _, _, _ := tb.Allow()
	if !allowed {
		t.Fatal("expected first request to be allowed")
	}
	time.Sleep(20 * time.Millisecond)
	allowed, _, _, _ = tb.Allow()
	if !allowed {
		t.Fatal("expected token bucket to have refilled")
	}
}

func TestRateLimiterIsPerUser(t *testing.T) {
	rl := NewRateLimiter(RateLimitInfo{WindowSeconds: 60, MaxRequests: 1, Burst: 1})
	allowedA, _, _, _ := rl.Allow("user-a")
	allowedB, _, _, _ := rl.Allow("user-b")
	if !allowedA || !allowedB {
		t.Fatal("expected independent buckets per user to both allow their first request")
	}
	allowedA2, _, _, _ := rl.Allow("user-a")
	if allowedA2 {
		t.Fatal("expected user-a's second request to be rate limited")
	}
}
