// Package tracking moves tracking events from the public routes into
// campaign results through a Redis stream.
package tracking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/model"
)

const (
	// StreamKey is the Redis stream for tracking events.
	StreamKey = "stream:tracking_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:tracking_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond

	maxUserAgentLength = 500
)

// EventPayload is the compact event format written to the stream.
type EventPayload struct {
	TargetID    string `json:"tid"`
	CampaignID  string `json:"cid"`
	Kind        string `json:"k"`
	VisitorHash string `json:"vh"`
	UserAgent   string `json:"ua,omitempty"`
	OccurredAt  int64  `json:"t"` // Unix milliseconds
}

// PayloadFor converts an event to its stream payload.
func PayloadFor(e model.TrackingEvent) EventPayload {
	return EventPayload{
		TargetID:    e.TargetID,
		CampaignID:  e.CampaignID,
		Kind:        string(e.Kind),
		VisitorHash: e.VisitorHash,
		UserAgent:   TruncateUserAgent(e.UserAgent),
		OccurredAt:  e.OccurredAt.UnixMilli(),
	}
}

// Publisher enqueues tracking events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new tracking event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "tracking.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously and returns its stream ID.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// PublishAsync publishes without blocking the caller. Failures are logged
// and counted as dropped.
func (p *Publisher) PublishAsync(event model.TrackingEvent) {
	payload := PayloadFor(event)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish tracking event",
				"target_id", payload.TargetID,
				"kind", payload.Kind,
				"error", err,
			)
			p.metrics.IncTrackingEventPublished(metrics.StatusDropped)
			return
		}

		p.logger.Debug("tracking event published",
			"target_id", payload.TargetID,
			"kind", payload.Kind,
			"stream_id", streamID,
		)
		p.metrics.IncTrackingEventPublished(metrics.StatusSuccess)
	}()
}

// GenerateVisitorHash creates a privacy-safe visitor identifier from
// SHA256(IP + UserAgent + daily salt), truncated to 16 hex chars.
func GenerateVisitorHash(ip, userAgent string, at time.Time) string {
	dailySalt := fmt.Sprintf("phishdrill:%s", at.UTC().Format("2006-01-02"))

	hash := sha256.Sum256([]byte(ip + userAgent + dailySalt))
	return hex.EncodeToString(hash[:])[:visitorHashLength]
}

// TruncateUserAgent truncates a user agent to at most 500 bytes without
// splitting a multi-byte rune.
func TruncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	cut := maxUserAgentLength
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}
