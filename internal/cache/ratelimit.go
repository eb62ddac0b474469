package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitIPPrefix namespaces per-IP buckets: ratelimit:ip:{scope}:{hash}.
const rateLimitIPPrefix = "ratelimit:ip:"

// ErrInvalidRate is returned for a non-positive rate or burst.
var ErrInvalidRate = errors.New("rate and burst must be positive")

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // zero when allowed
}

// tokenBucketScript refills and consumes atomically. Times are in
// milliseconds so sub-second refill is not lost.
//
// KEYS[1] bucket key
// ARGV    rate (tokens/s), burst, now (ms), ttl (ms)
// returns {allowed, retry_after_ms, tokens_left, ms_until_full}
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(data[1]) or burst
	local ts = tonumber(data[2]) or now

	local elapsed = math.max(0, now - ts)
	tokens = math.min(burst, tokens + (elapsed * rate / 1000))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) * 1000 / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'ts', now)
	redis.call('PEXPIRE', key, ttl)

	local until_full = math.ceil((burst - tokens) * 1000 / rate)
	return {allowed, retry_after, math.floor(tokens), until_full}
`)

// CheckIPRateLimit takes one token from the bucket for ip within scope, so
// separate route groups keep separate buckets. The IP is stored hashed.
// Redis errors are returned; callers decide whether to fail open.
func (c *Cache) CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil, ErrInvalidRate
	}

	now := time.Now()
	ttl := bucketTTL(ratePerSecond, burst)
	res, err := tokenBucketScript.Run(ctx, c.client,
		[]string{rateLimitKey(scope, ip)},
		ratePerSecond, burst, now.UnixMilli(), ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("token bucket: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("token bucket: unexpected reply length %d", len(res))
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: roundUpToSecond(time.Duration(res[1]) * time.Millisecond),
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
	}, nil
}

func rateLimitKey(scope, ip string) string {
	return rateLimitIPPrefix + scope + ":" + hashIP(ip)
}

// bucketTTL keeps a bucket until it would have refilled completely, plus a
// second of slack. An expired bucket is indistinguishable from a full one.
func bucketTTL(ratePerSecond, burst int) time.Duration {
	refill := time.Duration(math.Ceil(float64(burst)/float64(ratePerSecond))) * time.Second
	return refill + time.Second
}

// roundUpToSecond matches the whole-second granularity of Retry-After.
func roundUpToSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}

// hashIP returns the first 8 bytes of SHA-256 of ip as 16 hex chars.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
