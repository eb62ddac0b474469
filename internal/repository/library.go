package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

const templateSelect = `
	SELECT id, name, description, subject, body, sms_body, landing_url, difficulty, category,
	       is_custom, created_by, created_at
	FROM phishing_templates
`

func scanTemplate(row pgx.Row) (*model.PhishingTemplate, error) {
	var t model.PhishingTemplate
	var description, subject, body, smsBody, landing, category *string
	var difficulty string
	err := row.Scan(
		&t.ID,
		&t.Name,
		&description,
		&subject,
		&body,
		&smsBody,
		&landing,
		&difficulty,
		&category,
		&t.IsCustom,
		&t.CreatedBy,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Description = stringOrEmpty(description)
	t.Subject = stringOrEmpty(subject)
	t.Body = stringOrEmpty(body)
	t.SMSBody = stringOrEmpty(smsBody)
	t.LandingURL = stringOrEmpty(landing)
	t.Category = stringOrEmpty(category)
	t.Difficulty = model.Difficulty(difficulty)
	return &t, nil
}

// CreateTemplate inserts a phishing template.
func (r *Repository) CreateTemplate(ctx context.Context, t *model.PhishingTemplate) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO phishing_templates (id, name, description, subject, body, sms_body, landing_url,
		                                difficulty, category, is_custom, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		t.ID,
		t.Name,
		nullableString(t.Description),
		nullableString(t.Subject),
		nullableString(t.Body),
		nullableString(t.SMSBody),
		nullableString(t.LandingURL),
		string(t.Difficulty),
		nullableString(t.Category),
		t.IsCustom,
		t.CreatedBy,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template by id.
func (r *Repository) GetTemplate(ctx context.Context, id string) (*model.PhishingTemplate, error) {
	t, err := scanTemplate(r.q.QueryRow(ctx, templateSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns built-in templates plus the account's custom ones.
func (r *Repository) ListTemplates(ctx context.Context, accountID string) ([]*model.PhishingTemplate, error) {
	rows, err := r.q.Query(ctx, templateSelect+`
		WHERE NOT is_custom OR created_by = $1
		ORDER BY name
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	out := make([]*model.PhishingTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return out, nil
}

// ListContent returns active library items matching the filter.
func (r *Repository) ListContent(ctx context.Context, f model.ContentFilter) ([]*model.EducationalContent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, title, summary, body, category, difficulty, duration_minutes, is_active, created_at
		FROM educational_content
		WHERE is_active
		  AND ($1::text = '' OR difficulty = $1)
		  AND ($2::text = '' OR category = $2)
		ORDER BY title
	`, string(f.Difficulty), f.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	out := make([]*model.EducationalContent, 0)
	for rows.Next() {
		var c model.EducationalContent
		var summary, category *string
		var difficulty string
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&summary,
			&c.Body,
			&category,
			&difficulty,
			&c.DurationMin,
			&c.IsActive,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		c.Summary = stringOrEmpty(summary)
		c.Category = stringOrEmpty(category)
		c.Difficulty = model.Difficulty(difficulty)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content: %w", err)
	}
	return out, nil
}
