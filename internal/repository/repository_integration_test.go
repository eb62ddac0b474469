//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
	"github.com/phishdrill/phishdrill/internal/testutil"
)

func newTestRepository(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	dsn := testutil.RequireEnv(t, "DATABASE_URL")
	ctx := context.Background()

	repo, err := New(ctx, dsn)
	require.NoError(t, err)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unlock()
		repo.Close()
	})

	require.NoError(t, repo.Reset(ctx))
	return ctx, repo
}

func TestIntegrationMigrate_Idempotent(t *testing.T) {
	ctx, repo := newTestRepository(t)
	require.NoError(t, repo.Migrate(ctx))

	for _, table := range []string{"accounts", "profiles", "roles", "role_claims", "account_roles",
		"phishing_templates", "educational_content", "campaigns", "campaign_targets",
		"campaign_results", "tracking_events"} {
		var exists bool
		err := repo.Pool().QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s", table)
	}
}

func TestIntegrationAccount_UniqueEmail(t *testing.T) {
	ctx, repo := newTestRepository(t)

	a := testutil.NewTestAccount(t)
	require.NoError(t, repo.CreateAccount(ctx, a))

	dup := testutil.NewTestAccount(t)
	dup.Email = a.Email
	assert.ErrorIs(t, repo.CreateAccount(ctx, dup), store.ErrEmailExists)

	got, err := repo.GetAccountByEmail(ctx, a.Email)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.PasswordHash, got.PasswordHash)
}

func TestIntegrationWithinTx_Rollback(t *testing.T) {
	ctx, repo := newTestRepository(t)
	a := testutil.NewTestAccount(t)
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.CreateAccount(ctx, a))
		require.NoError(t, tx.CreateProfile(ctx, model.NewProfile(a.ID, true, a.CreatedAt)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetAccountByID(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
	_, err = repo.GetProfile(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrProfileNotFound)
}

func TestIntegrationRoles_EnsureConcurrently(t *testing.T) {
	ctx, repo := newTestRepository(t)

	var wg sync.WaitGroup
	created := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.EnsureRole(ctx, model.RoleAdmin, []string{model.PermUserRead, model.PermUserDelete})
			if err != nil && !errors.Is(err, store.ErrRoleExists) {
				t.Errorf("EnsureRole: %v", err)
			}
			created <- ok
		}()
	}
	wg.Wait()
	close(created)

	n := 0
	for ok := range created {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n, "exactly one caller should create the role")

	perms, err := repo.PermissionsOf(ctx, []string{model.RoleAdmin, "Ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{model.PermUserDelete, model.PermUserRead}, perms)
}

func TestIntegrationRoles_AssignAndList(t *testing.T) {
	ctx, repo := newTestRepository(t)

	_, err := repo.EnsureRole(ctx, model.RoleUser, nil)
	require.NoError(t, err)
	_, err = repo.EnsureRole(ctx, model.RoleMember, []string{model.PermUserRead})
	require.NoError(t, err)

	a := testutil.NewTestAccount(t)
	require.NoError(t, repo.CreateAccount(ctx, a))
	require.NoError(t, repo.CreateProfile(ctx, model.NewProfile(a.ID, true, a.CreatedAt)))
	require.NoError(t, repo.AssignRole(ctx, a.ID, model.RoleUser))
	require.NoError(t, repo.AssignRole(ctx, a.ID, model.RoleMember))
	require.NoError(t, repo.AssignRole(ctx, a.ID, model.RoleMember))
	assert.ErrorIs(t, repo.AssignRole(ctx, a.ID, "Ghost"), store.ErrRoleNotFound)

	roles, err := repo.RolesOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleMember, model.RoleUser}, roles)

	list, err := repo.ListAccounts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.TierFree, list[0].Tier)
	assert.Equal(t, []string{model.RoleMember, model.RoleUser}, list[0].Roles)
}

func TestIntegrationTracking_RecordEvents(t *testing.T) {
	ctx, repo := newTestRepository(t)

	owner := testutil.NewTestAccount(t)
	require.NoError(t, repo.CreateAccount(ctx, owner))

	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &model.Campaign{
		ID: testutil.UniqueID("cmp"), OwnerID: owner.ID, Name: "Q1",
		Type: model.CampaignEmail, Status: model.CampaignActive,
		TemplateID: "tmpl-password-expiry", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreateCampaign(ctx, c))

	target := &model.CampaignTarget{
		ID: testutil.UniqueID("tgt"), CampaignID: c.ID, Email: "victim@example.com",
		TokenHash: "hash-1", TokenPrefix: "abcdef", CreatedAt: now,
	}
	require.NoError(t, repo.AddTarget(ctx, target))

	delivered, err := repo.MarkTargetsDelivered(ctx, c.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, delivered)

	resolved, err := repo.ResolveTrackingToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, target.ID, resolved.TargetID)

	events := []model.TrackingEvent{
		{ID: testutil.UniqueID("evt"), EventID: "1-0", TargetID: target.ID, Kind: model.EventClick, OccurredAt: now},
		{ID: testutil.UniqueID("evt"), EventID: "1-0", TargetID: target.ID, Kind: model.EventClick, OccurredAt: now},
		{ID: testutil.UniqueID("evt"), EventID: "2-0", TargetID: target.ID, Kind: model.EventOpen, OccurredAt: now},
	}
	n, err := repo.RecordTrackingEvents(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := repo.ListResults(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.ResultClickedNoSubmit, results[0].Result)
	assert.Equal(t, "victim@example.com", results[0].Email)
}
