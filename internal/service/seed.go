package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

// SeedRoles makes sure every role in defs exists with its permission claims.
// Existing roles are left as they are, so concurrent or repeated runs are safe.
func SeedRoles(ctx context.Context, roles store.RoleStore, defs []model.RoleDefinition, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, def := range defs {
		created, err := roles.EnsureRole(ctx, def.Name, def.Permissions)
		if errors.Is(err, store.ErrRoleExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed role %s: %w", def.Name, err)
		}
		if created {
			logger.Info("role seeded",
				slog.String("role", def.Name),
				slog.Int("permissions", len(def.Permissions)),
			)
		}
	}
	return nil
}
