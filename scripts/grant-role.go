package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/repository"
	"github.com/phishdrill/phishdrill/internal/service"
	"github.com/phishdrill/phishdrill/internal/store"
)

type output struct {
	AccountID string                 `json:"account_id"`
	Email     string                 `json:"email"`
	Roles     []string               `json:"roles"`
	Tier      model.SubscriptionTier `json:"subscription_tier,omitempty"`
}

// grant-role promotes an existing account, typically to bootstrap the first
// Admin after registering through the API.
func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "", "Email of a registered account")
		role        = flag.String("role", model.RoleAdmin, "Role to grant (Admin, Member, User)")
		tier        = flag.String("tier", "", "Optional subscription tier to set (free, pro)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if *email == "" {
		fail("-email is required")
	}
	newTier := model.SubscriptionTier(strings.ToLower(*tier))
	if newTier != "" && !newTier.IsValid() {
		fail(fmt.Sprintf("unknown tier %q", *tier))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail("connect database: " + err.Error())
	}
	defer repo.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := service.SeedRoles(ctx, repo, model.SeedRoles, quiet); err != nil {
		fail("seed roles: " + err.Error())
	}

	var out output
	err = repo.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		account, err := tx.GetAccountByEmail(ctx, model.NormalizeEmail(*email))
		if err != nil {
			return fmt.Errorf("find account: %w", err)
		}
		if err := tx.AssignRole(ctx, account.ID, *role); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		if newTier != "" {
			if err := tx.UpdateTier(ctx, account.ID, newTier, time.Now().UTC()); err != nil {
				return fmt.Errorf("update tier: %w", err)
			}
		}
		roles, err := tx.RolesOf(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		out = output{AccountID: account.ID, Email: account.Email, Roles: roles, Tier: newTier}
		return nil
	})
	if err != nil {
		fail(err.Error())
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fail("encode output: " + err.Error())
		}
	default:
		fmt.Printf("account_id=%s\nemail=%s\nroles=%s\n", out.AccountID, out.Email, strings.Join(out.Roles, ","))
		if out.Tier != "" {
			fmt.Printf("subscription_tier=%s\n", out.Tier)
		}
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
