package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

// EnsureRole creates the role and its permission claims when no role with
// that name exists. A concurrent creator winning the race surfaces as
// store.ErrRoleExists.
func (r *Repository) EnsureRole(ctx context.Context, name string, permissions []string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up role %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	err = r.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.(*Repository).insertRole(ctx, name, permissions)
	})
	if err != nil {
		if isUniqueViolation(err, "roles_name_key") {
			return false, store.ErrRoleExists
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) insertRole(ctx context.Context, name string, permissions []string) error {
	id := ulid.Make().String()
	_, err := r.q.Exec(ctx,
		`INSERT INTO roles (id, name, created_at) VALUES ($1, $2, $3)`,
		id, name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create role %s: %w", name, err)
	}
	if len(permissions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range permissions {
		batch.Queue(`
			INSERT INTO role_claims (role_id, claim_type, claim_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (role_id, claim_type, claim_value) DO NOTHING
		`, id, model.ClaimTypePermission, p)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()
	for i := range permissions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to add claim %d to role %s: %w", i, name, err)
		}
	}
	return nil
}

// AssignRole grants roleName to an account. Granting a held role is a no-op.
func (r *Repository) AssignRole(ctx context.Context, accountID, roleName string) error {
	var roleID string
	err := r.q.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, roleName).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrRoleNotFound
		}
		return fmt.Errorf("failed to look up role %s: %w", roleName, err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO account_roles (account_id, role_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, role_id) DO NOTHING
	`, accountID, roleID, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrAccountNotFound
		}
		return fmt.Errorf("failed to assign role %s: %w", roleName, err)
	}
	return nil
}

// RolesOf returns the sorted role names held by an account.
func (r *Repository) RolesOf(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.name
		FROM account_roles ar
		JOIN roles r ON r.id = ar.role_id
		WHERE ar.account_id = $1
		ORDER BY r.name
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return collectStrings(rows)
}

// PermissionsOf returns the sorted, distinct permission claims across roleNames.
func (r *Repository) PermissionsOf(ctx context.Context, roleNames []string) ([]string, error) {
	if len(roleNames) == 0 {
		return []string{}, nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT rc.claim_value
		FROM role_claims rc
		JOIN roles r ON r.id = rc.role_id
		WHERE r.name = ANY($1) AND rc.claim_type = $2
		ORDER BY rc.claim_value
	`, pq.Array(roleNames), model.ClaimTypePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return collectStrings(rows)
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
