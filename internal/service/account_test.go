package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
	"github.com/phishdrill/phishdrill/internal/store/memstore"
)

const strongPassword = "Sup3r$ecret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastHasher keeps argon2 cheap enough for unit tests.
func fastHasher() *auth.Argon2Hasher {
	return auth.NewArgon2Hasher(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1})
}

type accountFixture struct {
	svc      *AccountService
	store    *memstore.Store
	issuer   *auth.TokenIssuer
	recorder *metrics.InMemoryRecorder
}

func newAccountFixture(t *testing.T, seed bool) *accountFixture {
	t.Helper()
	st := memstore.New()
	if seed {
		require.NoError(t, SeedRoles(context.Background(), st, model.SeedRoles, discardLogger()))
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SecretKey: "unit-test-secret-key-0123456789abcdef",
		Issuer:    "phishdrill",
		Audience:  "phishdrill",
		TTL:       time.Hour,
	})
	require.NoError(t, err)
	recorder := metrics.NewInMemory()
	return &accountFixture{
		svc:      NewAccountService(st, fastHasher(), issuer, discardLogger(), recorder),
		store:    st,
		issuer:   issuer,
		recorder: recorder,
	}
}

func janeInput() RegisterInput {
	return RegisterInput{
		Email:     "jane@x.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Password:  strongPassword,
	}
}

func TestRegister_CreatesAccountProfileAndRole(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)

	input := janeInput()
	input.Email = "  Jane@X.com "
	account, err := f.svc.Register(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "jane@x.com", account.Email)
	assert.NotContains(t, account.PasswordHash, strongPassword)

	profile, err := f.store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, profile.Tier)
	assert.Equal(t, model.StatusActive, profile.Status)
	assert.True(t, profile.EnableNotifications)

	roles, err := f.store.RolesOf(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleUser}, roles)

	assert.Equal(t, uint64(1), f.recorder.Snapshot().Registrations[metrics.StatusSuccess])
}

func TestRegister_NotificationOptOut(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)

	off := false
	input := janeInput()
	input.EnableNotifications = &off
	account, err := f.svc.Register(ctx, input)
	require.NoError(t, err)

	profile, err := f.store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, profile.EnableNotifications)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "Email is not a valid e-mail address."},
		{"missing first name", func(in *RegisterInput) { in.FirstName = " " }, "First name is required."},
		{"long last name", func(in *RegisterInput) { in.LastName = strings.Repeat("a", MaxNameLength+1) }, "Last name must be at most 50 characters."},
		{"short password", func(in *RegisterInput) { in.Password = "Ab1$" }, "Password must be between 8 and 100 characters."},
		{"weak password", func(in *RegisterInput) { in.Password = "alllowercase" }, "Password must contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccountFixture(t, true)
			input := janeInput()
			tt.mutate(&input)

			_, err := f.svc.Register(context.Background(), input)
			ve, ok := AsValidationError(err)
			require.True(t, ok, "want ValidationError, got %v", err)
			require.Len(t, ve.Errors, 1)
			assert.Contains(t, ve.Errors[0], tt.want)
		})
	}
}

func TestRegister_ReportsEveryProblem(t *testing.T) {
	f := newAccountFixture(t, true)
	_, err := f.svc.Register(context.Background(), RegisterInput{})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(ve.Errors), 4)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)

	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	input := janeInput()
	input.Email = "JANE@x.com"
	_, err = f.svc.Register(ctx, input)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Email 'jane@x.com' is already taken."}, ve.Errors)
}

func TestRegister_RollsBackWhenRoleMissing(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, false)

	_, err := f.svc.Register(ctx, janeInput())
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Could not assign role 'User'."}, ve.Errors)

	_, err = f.store.GetAccountByEmail(ctx, "jane@x.com")
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestLogin_IssuesTokenWithMergedClaims(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)

	account, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	token, err := f.svc.Login(ctx, "Jane@x.com", strongPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)

	claims, err := f.issuer.Parse(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Subject)
	assert.Equal(t, "jane@x.com", claims.Email)
	assert.Equal(t, []string{model.RoleUser}, claims.Roles)
	assert.ElementsMatch(t, []string{
		model.PermCampaignRead, model.PermCampaignCreate, model.PermContentRead, model.PermTemplateRead,
	}, claims.Permissions)

	got, err := f.store.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestLogin_AdminGetsRoleClaimsAndTierPermissions(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)

	account, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.GrantRole(ctx, account.ID, model.RoleAdmin))
	require.NoError(t, f.svc.SetTier(ctx, account.ID, model.TierPro))

	token, err := f.svc.Login(ctx, "jane@x.com", strongPassword)
	require.NoError(t, err)
	claims, err := f.issuer.Parse(token.AccessToken)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{model.RoleAdmin, model.RoleUser}, claims.Roles)
	assert.Contains(t, claims.Permissions, model.PermUserDelete)
	assert.Contains(t, claims.Permissions, model.PermCampaignSMS)
	assert.Contains(t, claims.Permissions, model.PermResultExport)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)
	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	_, unknown := f.svc.Login(ctx, "nobody@x.com", strongPassword)
	_, wrong := f.svc.Login(ctx, "jane@x.com", "Wr0ng$pass")

	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())
	assert.Equal(t, uint64(2), f.recorder.Snapshot().Logins[metrics.StatusFailed])
}

func TestSetTier(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)
	account, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	_, ok := AsValidationError(f.svc.SetTier(ctx, account.ID, "platinum"))
	assert.True(t, ok)
	assert.ErrorIs(t, f.svc.SetTier(ctx, "missing", model.TierPro), ErrNotFound)

	require.NoError(t, f.svc.SetTier(ctx, account.ID, model.TierPro))
	profile, err := f.store.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, profile.Tier)
}

func TestGrantRole(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)
	account, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.GrantRole(ctx, "missing", model.RoleMember), ErrNotFound)

	err = f.svc.GrantRole(ctx, account.ID, "Owner")
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Role 'Owner' does not exist."}, ve.Errors)

	require.NoError(t, f.svc.GrantRole(ctx, account.ID, model.RoleMember))
	roles, err := f.store.RolesOf(ctx, account.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.RoleMember, model.RoleUser}, roles)
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	f := newAccountFixture(t, true)
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		input := janeInput()
		input.Email = email
		_, err := f.svc.Register(ctx, input)
		require.NoError(t, err)
	}

	all, err := f.svc.ListAccounts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := f.svc.ListAccounts(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSeedRoles_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	require.NoError(t, SeedRoles(ctx, st, model.SeedRoles, discardLogger()))
	require.NoError(t, SeedRoles(ctx, st, model.SeedRoles, discardLogger()))

	perms, err := st.PermissionsOf(ctx, []string{model.RoleAdmin})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.PermUserRead, model.PermUserUpdate, model.PermUserDelete, model.PermUserCreate}, perms)

	perms, err = st.PermissionsOf(ctx, []string{model.RoleUser})
	require.NoError(t, err)
	assert.Empty(t, perms)
}
