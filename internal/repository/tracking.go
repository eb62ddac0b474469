package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

const upsertResultSQL = `
	INSERT INTO campaign_results (
		id, campaign_id, target_id, result, score,
		delivered_at, opened_at, clicked_at, submitted_at, reported_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (target_id) DO UPDATE SET
		result = EXCLUDED.result,
		score = EXCLUDED.score,
		delivered_at = EXCLUDED.delivered_at,
		opened_at = EXCLUDED.opened_at,
		clicked_at = EXCLUDED.clicked_at,
		submitted_at = EXCLUDED.submitted_at,
		reported_at = EXCLUDED.reported_at,
		updated_at = EXCLUDED.updated_at
`

func resultArgs(res *model.CampaignResult) []any {
	return []any{
		res.ID,
		res.CampaignID,
		res.TargetID,
		string(res.Result),
		res.Score,
		res.DeliveredAt,
		res.OpenedAt,
		res.ClickedAt,
		res.SubmittedAt,
		res.ReportedAt,
		res.UpdatedAt,
	}
}

// ResolveTrackingToken maps a tracking token hash to its target, campaign
// state and landing page.
func (r *Repository) ResolveTrackingToken(ctx context.Context, tokenHash string) (*model.TrackingTarget, error) {
	var out model.TrackingTarget
	var status string
	var landing *string
	err := r.q.QueryRow(ctx, `
		SELECT t.id, c.id, c.status, pt.landing_url
		FROM campaign_targets t
		JOIN campaigns c ON c.id = t.campaign_id
		LEFT JOIN phishing_templates pt ON pt.id = c.template_id
		WHERE t.token_hash = $1
	`, tokenHash).Scan(&out.TargetID, &out.CampaignID, &status, &landing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to resolve tracking token: %w", err)
	}
	out.CampaignStatus = model.CampaignStatus(status)
	out.LandingURL = stringOrEmpty(landing)
	return &out, nil
}

// RecordTrackingEvents stores each unseen event for an active campaign and
// folds it into the target's result, all in one transaction.
func (r *Repository) RecordTrackingEvents(ctx context.Context, events []model.TrackingEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	applied := 0
	err := r.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		repo := tx.(*Repository)
		applied = 0
		for _, e := range events {
			ok, err := repo.recordEvent(ctx, e)
			if err != nil {
				return fmt.Errorf("event %s: %w", e.EventID, err)
			}
			if ok {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

func (r *Repository) recordEvent(ctx context.Context, e model.TrackingEvent) (bool, error) {
	var campaignID, status string
	err := r.q.QueryRow(ctx, `
		SELECT t.campaign_id, c.status
		FROM campaign_targets t
		JOIN campaigns c ON c.id = t.campaign_id
		WHERE t.id = $1
	`, e.TargetID).Scan(&campaignID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("look up target: %w", err)
	}
	if model.CampaignStatus(status) != model.CampaignActive {
		return false, nil
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO tracking_events (id, event_id, target_id, campaign_id, kind, visitor_hash, user_agent, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`,
		e.ID,
		e.EventID,
		e.TargetID,
		campaignID,
		string(e.Kind),
		nullableString(e.VisitorHash),
		nullableString(e.UserAgent),
		e.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	res, err := r.lockResult(ctx, e.TargetID)
	if err != nil {
		return false, err
	}
	if res == nil {
		res = &model.CampaignResult{
			ID:         ulid.Make().String(),
			CampaignID: campaignID,
			TargetID:   e.TargetID,
			Result:     model.ResultNotDelivered,
		}
	}

	if !model.ApplyEvent(res, e) {
		return true, nil
	}
	if _, err := r.q.Exec(ctx, upsertResultSQL, resultArgs(res)...); err != nil {
		return false, fmt.Errorf("upsert result: %w", err)
	}
	return true, nil
}

func (r *Repository) lockResult(ctx context.Context, targetID string) (*model.CampaignResult, error) {
	var res model.CampaignResult
	var result string
	err := r.q.QueryRow(ctx, `
		SELECT id, campaign_id, target_id, result, score,
		       delivered_at, opened_at, clicked_at, submitted_at, reported_at, updated_at
		FROM campaign_results
		WHERE target_id = $1
		FOR UPDATE
	`, targetID).Scan(
		&res.ID,
		&res.CampaignID,
		&res.TargetID,
		&result,
		&res.Score,
		&res.DeliveredAt,
		&res.OpenedAt,
		&res.ClickedAt,
		&res.SubmittedAt,
		&res.ReportedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock result: %w", err)
	}
	res.Result = model.ResultType(result)
	return &res, nil
}
