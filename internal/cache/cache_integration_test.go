//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/testutil"
)

func TestTrackingTargetCache(t *testing.T) {
	ctx := context.Background()
	c := NewWithClient(testutil.NewRedisClient(t))

	_, err := c.GetTrackingTarget(ctx, "hash-1")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetNegativeCache(ctx, "hash-1"))
	neg, err := c.IsNegativelyCached(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, neg)

	target := &model.TrackingTarget{
		TargetID: "tgt-1", CampaignID: "cmp-1",
		CampaignStatus: model.CampaignActive, LandingURL: "https://example.com/",
	}
	require.NoError(t, c.SetTrackingTarget(ctx, "hash-1", target))

	neg, err = c.IsNegativelyCached(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, neg, "caching a target clears its negative entry")

	got, err := c.GetTrackingTarget(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, target.TargetID, got.TargetID)
	assert.Equal(t, target.LandingURL, got.LandingURL)
	assert.Empty(t, got.CampaignStatus, "status is read fresh, never cached")

	require.NoError(t, c.DeleteTrackingTarget(ctx, "hash-1"))
	_, err = c.GetTrackingTarget(ctx, "hash-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCheckIPRateLimit_BurstThenDeny(t *testing.T) {
	ctx := context.Background()
	c := NewWithClient(testutil.NewRedisClient(t))

	for i := 0; i < 3; i++ {
		res, err := c.CheckIPRateLimit(ctx, "auth", "10.1.1.1", 1, 3)
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d within burst", i+1)
	}

	res, err := c.CheckIPRateLimit(ctx, "auth", "10.1.1.1", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other, err := c.CheckIPRateLimit(ctx, "tracking", "10.1.1.1", 1, 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "scopes have independent buckets")
}
