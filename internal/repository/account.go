package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

const accountColumns = `id, email, password_hash, first_name, last_name, created_at, updated_at, last_login_at, deleted_at, deleted_by`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
		&a.DeletedAt,
		&a.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account. Email must already be normalized.
func (r *Repository) CreateAccount(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		a.ID,
		a.Email,
		a.PasswordHash,
		a.FirstName,
		a.LastName,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "accounts_email_key") {
			return store.ErrEmailExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves a live account by id.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`

	a, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return a, nil
}

// GetAccountByEmail retrieves a live account by normalized email.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND deleted_at IS NULL`

	a, err := scanAccount(r.q.QueryRow(ctx, query, model.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return a, nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// ListAccounts returns a page of live accounts with their profile and roles.
func (r *Repository) ListAccounts(ctx context.Context, limit, offset int) ([]*model.AccountSummary, error) {
	query := `
		SELECT a.id, a.email, a.first_name, a.last_name, a.created_at,
		       COALESCE(p.subscription_tier, ''), COALESCE(p.status, ''),
		       COALESCE(ARRAY_AGG(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM accounts a
		LEFT JOIN profiles p ON p.account_id = a.id
		LEFT JOIN account_roles ar ON ar.account_id = a.id
		LEFT JOIN roles r ON r.id = ar.role_id
		WHERE a.deleted_at IS NULL
		GROUP BY a.id, p.subscription_tier, p.status
		ORDER BY a.created_at, a.id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]*model.AccountSummary, 0, limit)
	for rows.Next() {
		var s model.AccountSummary
		var tier, status string
		if err := rows.Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.CreatedAt, &tier, &status, &s.Roles); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		s.Tier = model.SubscriptionTier(tier)
		s.Status = model.AccountStatus(status)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return out, nil
}

// CreateProfile inserts the profile row for an account.
func (r *Repository) CreateProfile(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (account_id, subscription_tier, status, enable_notifications, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		p.AccountID,
		string(p.Tier),
		string(p.Status),
		p.EnableNotifications,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrAccountNotFound
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfile retrieves the profile of an account.
func (r *Repository) GetProfile(ctx context.Context, accountID string) (*model.Profile, error) {
	query := `
		SELECT account_id, subscription_tier, status, enable_notifications, created_at, updated_at
		FROM profiles
		WHERE account_id = $1
	`

	var p model.Profile
	var tier, status string
	err := r.q.QueryRow(ctx, query, accountID).Scan(
		&p.AccountID,
		&tier,
		&status,
		&p.EnableNotifications,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Tier = model.SubscriptionTier(tier)
	p.Status = model.AccountStatus(status)
	return &p, nil
}

// UpdateTier changes an account's subscription tier.
func (r *Repository) UpdateTier(ctx context.Context, accountID string, tier model.SubscriptionTier, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE profiles SET subscription_tier = $2, updated_at = $3 WHERE account_id = $1`,
		accountID, string(tier), at,
	)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}
	return nil
}
