package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

const campaignSelect = `
	SELECT c.id, c.owner_id, c.name, c.description, c.type, c.status, c.template_id,
	       c.scheduled_at, c.started_at, c.completed_at, c.created_at, c.updated_at,
	       (SELECT COUNT(*) FROM campaign_targets t WHERE t.campaign_id = c.id)
	FROM campaigns c
`

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	var description *string
	var typ, status string
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&description,
		&typ,
		&status,
		&c.TemplateID,
		&c.ScheduledAt,
		&c.StartedAt,
		&c.CompletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.TargetCount,
	)
	if err != nil {
		return nil, err
	}
	c.Description = stringOrEmpty(description)
	c.Type = model.CampaignType(typ)
	c.Status = model.CampaignStatus(status)
	return &c, nil
}

// CreateCampaign inserts a campaign.
func (r *Repository) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (id, owner_id, name, description, type, status, template_id, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		nullableString(c.Description),
		string(c.Type),
		string(c.Status),
		c.TemplateID,
		c.ScheduledAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrTemplateNotFound
		}
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by id.
func (r *Repository) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := scanCampaign(r.q.QueryRow(ctx, campaignSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// ListCampaignsByOwner returns an owner's campaigns, newest first.
func (r *Repository) ListCampaignsByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error) {
	rows, err := r.q.Query(ctx, campaignSelect+` WHERE c.owner_id = $1 ORDER BY c.created_at DESC, c.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return out, nil
}

// UpdateCampaignStatus persists the status and lifecycle timestamps.
func (r *Repository) UpdateCampaignStatus(ctx context.Context, c *model.Campaign) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE campaigns
		SET status = $2, started_at = $3, completed_at = $4, updated_at = $5
		WHERE id = $1
	`, c.ID, string(c.Status), c.StartedAt, c.CompletedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCampaignNotFound
	}
	return nil
}

// AddTarget inserts a campaign target.
func (r *Repository) AddTarget(ctx context.Context, t *model.CampaignTarget) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO campaign_targets (id, campaign_id, email, phone_number, token_hash, token_prefix, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		t.ID,
		t.CampaignID,
		nullableString(t.Email),
		nullableString(t.PhoneNumber),
		t.TokenHash,
		t.TokenPrefix,
		t.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrCampaignNotFound
		}
		return fmt.Errorf("failed to add target: %w", err)
	}
	return nil
}

// MarkTargetsDelivered records a delivered result for every target of the
// campaign that has none yet. Returns how many were recorded.
func (r *Repository) MarkTargetsDelivered(ctx context.Context, campaignID string, at time.Time) (int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT t.id
		FROM campaign_targets t
		LEFT JOIN campaign_results cr ON cr.target_id = t.id
		WHERE t.campaign_id = $1 AND cr.id IS NULL
	`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to list undelivered targets: %w", err)
	}
	targetIDs, err := collectStrings(rows)
	if err != nil {
		return 0, err
	}
	if len(targetIDs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, targetID := range targetIDs {
		res := model.NewDeliveredResult(ulid.Make().String(), campaignID, targetID, at)
		batch.Queue(upsertResultSQL, resultArgs(res)...)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	var n int64
	for i := range targetIDs {
		tag, err := results.Exec()
		if err != nil {
			return n, fmt.Errorf("failed to record delivery %d: %w", i, err)
		}
		n += tag.RowsAffected()
	}
	return n, nil
}

// ListResults returns one result per target; targets without a result row
// are reported as not delivered.
func (r *Repository) ListResults(ctx context.Context, campaignID string) ([]*model.CampaignResult, error) {
	rows, err := r.q.Query(ctx, `
		SELECT COALESCE(cr.id, ''), t.campaign_id, t.id, t.email, t.phone_number,
		       COALESCE(cr.result, $2), COALESCE(cr.score, 0),
		       cr.delivered_at, cr.opened_at, cr.clicked_at, cr.submitted_at, cr.reported_at,
		       COALESCE(cr.updated_at, t.created_at)
		FROM campaign_targets t
		LEFT JOIN campaign_results cr ON cr.target_id = t.id
		WHERE t.campaign_id = $1
		ORDER BY t.id
	`, campaignID, string(model.ResultNotDelivered))
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	out := make([]*model.CampaignResult, 0)
	for rows.Next() {
		var res model.CampaignResult
		var email, phone *string
		var result string
		if err := rows.Scan(
			&res.ID,
			&res.CampaignID,
			&res.TargetID,
			&email,
			&phone,
			&result,
			&res.Score,
			&res.DeliveredAt,
			&res.OpenedAt,
			&res.ClickedAt,
			&res.SubmittedAt,
			&res.ReportedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Email = stringOrEmpty(email)
		res.PhoneNumber = stringOrEmpty(phone)
		res.Result = model.ResultType(result)
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return out, nil
}
