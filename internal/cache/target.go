package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phishdrill/phishdrill/internal/model"
)

// Cache key prefixes and TTLs.
const (
	targetKeyPrefix   = "trk:"
	negCacheKeySuffix = ":neg"

	// DefaultTargetTTL is the TTL for cached tracking targets.
	DefaultTargetTTL = 5 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

func targetKey(tokenHash string) string {
	return targetKeyPrefix + tokenHash
}

// GetTrackingTarget retrieves a resolved tracking token by its hash.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetTrackingTarget(ctx context.Context, tokenHash string) (*model.TrackingTarget, error) {
	result, err := c.client.HGetAll(ctx, targetKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrCacheMiss
	}
	return targetFromFields(result)
}

// SetTrackingTarget stores a resolved tracking token.
func (c *Cache) SetTrackingTarget(ctx context.Context, tokenHash string, target *model.TrackingTarget) error {
	key := targetKey(tokenHash)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, targetFields(target))
	pipe.Expire(ctx, key, DefaultTargetTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache tracking target: %w", err)
	}
	return nil
}

// DeleteTrackingTarget removes a tracking token from cache.
func (c *Cache) DeleteTrackingTarget(ctx context.Context, tokenHash string) error {
	key := targetKey(tokenHash)
	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete tracking target from cache: %w", err)
	}
	return nil
}

// IsNegativelyCached checks if a token hash is known not to exist.
func (c *Cache) IsNegativelyCached(ctx context.Context, tokenHash string) (bool, error) {
	exists, err := c.client.Exists(ctx, targetKey(tokenHash)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegativeCache marks a token hash as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, tokenHash string) error {
	err := c.client.SetEx(ctx, targetKey(tokenHash)+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

// targetFields flattens a target into string hash fields. The campaign
// status changes over a target's lifetime and is not stored.
func targetFields(t *model.TrackingTarget) map[string]any {
	return map[string]any{
		"target_id":   t.TargetID,
		"campaign_id": t.CampaignID,
		"landing_url": t.LandingURL,
	}
}

func targetFromFields(fields map[string]string) (*model.TrackingTarget, error) {
	t := &model.TrackingTarget{
		TargetID:   fields["target_id"],
		CampaignID: fields["campaign_id"],
		LandingURL: fields["landing_url"],
	}
	if t.TargetID == "" || t.CampaignID == "" {
		return nil, ErrCacheMiss
	}
	return t, nil
}
