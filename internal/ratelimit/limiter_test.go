package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestLimiter creates a Limiter against a local Redis instance and cleans
// its test keys. Tests that call this helper require a running Redis on
// localhost:6379.
func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		for _, pattern := range []string{"rl:chat:test_*", "rl:init:test_*", "rl:probe:test_*"} {
			iter := client.Scan(ctx, 0, pattern, 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client)
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:probe:", Limit: 3, Window: 10 * time.Second}

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "test_user", rule) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "test_user", rule) {
		t.Error("request over the limit should be denied")
	}
}

func TestAllow_IsolatedPerIdentity(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:probe:", Limit: 1, Window: 10 * time.Second}

	if !limiter.Allow(ctx, "test_a", rule) {
		t.Fatal("first request for test_a should be allowed")
	}
	if limiter.Allow(ctx, "test_a", rule) {
		t.Fatal("second request for test_a should be denied")
	}
	if !limiter.Allow(ctx, "test_b", rule) {
		t.Error("test_b must have its own counter")
	}
}

func TestAllow_NilLimiterAllowsEverything(t *testing.T) {
	var limiter *Limiter
	if !limiter.Allow(context.Background(), "anyone", RuleChat) {
		t.Error("nil limiter must fail open")
	}
	if !NewLimiter(nil).Allow(context.Background(), "anyone", RuleChat) {
		t.Error("limiter without a client must fail open")
	}
}
