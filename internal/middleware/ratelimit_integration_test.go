//go:build integration

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/phishdrill/phishdrill/internal/cache"
	"github.com/phishdrill/phishdrill/internal/testutil"
)

// TestIPRateLimitConcurrency verifies the Lua token bucket stays atomic under
// concurrent load.
func TestIPRateLimitConcurrency(t *testing.T) {
	ctx := context.Background()
	c := cache.NewWithClient(testutil.NewRedisClient(t))

	rps, burst := 5, 3
	var allowed, rejected int64
	var wg sync.WaitGroup

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.CheckIPRateLimit(ctx, "auth", "192.168.1.100", rps, burst)
			if err != nil {
				t.Errorf("CheckIPRateLimit error: %v", err)
				return
			}
			if result.Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	t.Logf("IP rate limit: %d allowed, %d rejected", allowed, rejected)
	if rejected == 0 {
		t.Error("Expected some requests to be rejected")
	}
	if allowed > int64(burst+rps) {
		t.Errorf("Too many requests allowed: %d (expected <= %d)", allowed, burst+rps)
	}
}

// TestRateLimitIP_LoginFlood checks the middleware against real Redis.
func TestRateLimitIP_LoginFlood(t *testing.T) {
	c := cache.NewWithClient(testutil.NewRedisClient(t))

	h := RateLimitIP(RateLimitConfig{
		Logger: discardLogger(), Limiter: c, Enabled: true,
		Scope: "auth", RPS: 1, Burst: 2,
	})(okHandler())

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("flood should be limited, got %v", codes)
	}
}
