package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/cache"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
	"github.com/phishdrill/phishdrill/internal/tracking"
)

// TargetResolver looks up the target behind a tracking token hash and the
// current state of its campaign.
type TargetResolver interface {
	ResolveTrackingToken(ctx context.Context, tokenHash string) (*model.TrackingTarget, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
}

// TargetCache caches token resolutions. Get returns cache.ErrCacheMiss when
// nothing is stored. Cached targets carry no campaign status.
type TargetCache interface {
	GetTrackingTarget(ctx context.Context, tokenHash string) (*model.TrackingTarget, error)
	SetTrackingTarget(ctx context.Context, tokenHash string, target *model.TrackingTarget) error
	IsNegativelyCached(ctx context.Context, tokenHash string) (bool, error)
	SetNegativeCache(ctx context.Context, tokenHash string) error
}

// EventPublisher hands tracking events to the background pipeline without
// blocking.
type EventPublisher interface {
	PublishAsync(event model.TrackingEvent)
}

// Visit describes the request that hit a tracking route.
type Visit struct {
	IP        string
	UserAgent string
}

// TrackingService resolves tracking tokens and emits tracking events.
type TrackingService struct {
	resolver       TargetResolver
	cache          TargetCache
	publisher      EventPublisher
	defaultLanding string
	logger         *slog.Logger
	now            func() time.Time
}

// NewTrackingService creates a new TrackingService. cache may be nil.
func NewTrackingService(resolver TargetResolver, targetCache TargetCache, publisher EventPublisher, defaultLanding string, logger *slog.Logger) *TrackingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackingService{
		resolver:       resolver,
		cache:          targetCache,
		publisher:      publisher,
		defaultLanding: defaultLanding,
		logger:         logger.With("component", "tracking.service"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Track records that the holder of token performed kind and returns the
// target so the caller can respond. Tokens that are malformed, unknown or
// belong to a campaign that is not active all yield ErrNotFound.
func (s *TrackingService) Track(ctx context.Context, token string, kind model.EventKind, visit Visit) (*model.TrackingTarget, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	hash, err := auth.TrackingTokenHash(token)
	if err != nil {
		return nil, ErrNotFound
	}

	target, err := s.resolve(ctx, hash)
	if err != nil {
		return nil, err
	}
	if target.CampaignStatus != model.CampaignActive {
		return nil, ErrNotFound
	}
	if target.LandingURL == "" {
		target.LandingURL = s.defaultLanding
	}

	now := s.now()
	if s.publisher != nil {
		s.publisher.PublishAsync(model.TrackingEvent{
			ID:          ulid.Make().String(),
			TargetID:    target.TargetID,
			CampaignID:  target.CampaignID,
			Kind:        kind,
			VisitorHash: tracking.GenerateVisitorHash(visit.IP, visit.UserAgent, now),
			UserAgent:   tracking.TruncateUserAgent(visit.UserAgent),
			OccurredAt:  now,
		})
	}
	return target, nil
}

// resolve is cache-first with negative caching of unknown tokens. The
// campaign status is never taken from the cache.
func (s *TrackingService) resolve(ctx context.Context, hash string) (*model.TrackingTarget, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTrackingTarget(ctx, hash)
		if err == nil {
			return s.withCurrentStatus(ctx, cached)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("tracking cache read failed", slog.String("error", err.Error()))
		} else if negative, _ := s.cache.IsNegativelyCached(ctx, hash); negative {
			return nil, ErrNotFound
		}
	}

	target, err := s.resolver.ResolveTrackingToken(ctx, hash)
	if errors.Is(err, store.ErrTargetNotFound) {
		if s.cache != nil {
			_ = s.cache.SetNegativeCache(ctx, hash)
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tracking token: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetTrackingTarget(ctx, hash, target); err != nil {
			s.logger.Warn("tracking cache write failed", slog.String("error", err.Error()))
		}
	}
	return target, nil
}

// withCurrentStatus fills in the campaign status of a cached target.
func (s *TrackingService) withCurrentStatus(ctx context.Context, target *model.TrackingTarget) (*model.TrackingTarget, error) {
	campaign, err := s.resolver.GetCampaign(ctx, target.CampaignID)
	if errors.Is(err, store.ErrCampaignNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign status: %w", err)
	}
	target.CampaignStatus = campaign.Status
	return target, nil
}
