package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(account *model.Account, plaintext string) (string, error)
	Verify(account *model.Account, plaintext string) (bool, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(account *model.Account, roles, permissions []string) (*auth.Token, error)
}

// AccountRepository is the persistence surface AccountService needs.
type AccountRepository interface {
	store.Transactor
	store.AccountStore
	store.ProfileStore
	store.RoleStore
}

// AccountService handles registration, login and account administration.
type AccountService struct {
	repo    AccountRepository
	hasher  PasswordHasher
	issuer  TokenIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummy     *model.Account
}

// NewAccountService creates a new AccountService.
func NewAccountService(repo AccountRepository, hasher PasswordHasher, issuer TokenIssuer, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		repo:    repo,
		hasher:  hasher,
		issuer:  issuer,
		metrics: recorder,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput defines input for registration.
type RegisterInput struct {
	Email               string
	FirstName           string
	LastName            string
	Password            string
	EnableNotifications *bool
}

// Register creates an account, its profile and its default role assignment
// atomically.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.Account, error) {
	v := &validator{}
	v.email("Email", input.Email)
	v.name("First name", input.FirstName, true, MaxNameLength)
	v.name("Last name", input.LastName, true, MaxNameLength)
	v.password(input.Password)
	if err := v.err(); err != nil {
		s.metrics.IncRegistration(metrics.StatusRejected)
		return nil, err
	}

	now := s.now()
	account := &model.Account{
		ID:        uuid.NewString(),
		Email:     model.NormalizeEmail(input.Email),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}

	hash, err := s.hasher.Hash(account, input.Password)
	if err != nil {
		s.metrics.IncRegistration(metrics.StatusError)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash

	notify := true
	if input.EnableNotifications != nil {
		notify = *input.EnableNotifications
	}

	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		if err := tx.CreateProfile(ctx, model.NewProfile(account.ID, notify, now)); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := tx.AssignRole(ctx, account.ID, model.DefaultRole); err != nil {
			return fmt.Errorf("assign role %s: %w", model.DefaultRole, err)
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrEmailExists):
		s.metrics.IncRegistration(metrics.StatusRejected)
		return nil, NewValidationError(fmt.Sprintf("Email '%s' is already taken.", account.Email))
	case errors.Is(err, store.ErrRoleNotFound):
		s.metrics.IncRegistration(metrics.StatusError)
		s.logger.Error("default role missing, registration rolled back",
			slog.String("role", model.DefaultRole),
		)
		return nil, NewValidationError(fmt.Sprintf("Could not assign role '%s'.", model.DefaultRole))
	default:
		s.metrics.IncRegistration(metrics.StatusError)
		return nil, fmt.Errorf("register account: %w", err)
	}

	s.metrics.IncRegistration(metrics.StatusSuccess)
	s.logger.Info("account registered", slog.String("account_id", account.ID))
	return account, nil
}

// Login verifies credentials and issues a token carrying the account's role
// claims merged with its tier permissions. Unknown e-mail and wrong password
// return the same ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*auth.Token, error) {
	account, err := s.repo.GetAccountByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			s.burnVerify(password)
			s.metrics.IncLogin(metrics.StatusFailed)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncLogin(metrics.StatusError)
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Verify(account, password)
	if err != nil {
		s.logger.Error("stored password hash unreadable",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}
	if err != nil || !ok {
		s.metrics.IncLogin(metrics.StatusFailed)
		return nil, ErrInvalidCredentials
	}

	roles, perms, err := s.claimsFor(ctx, account.ID)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusError)
		return nil, err
	}

	token, err := s.issuer.Issue(account, roles, perms)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.repo.TouchLastLogin(ctx, account.ID, s.now()); err != nil {
		s.logger.Warn("failed to record last login",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.IncLogin(metrics.StatusSuccess)
	return token, nil
}

// claimsFor loads the account's roles, their permission claims and the
// permissions of its subscription tier. A missing profile grants no tier
// permissions.
func (s *AccountService) claimsFor(ctx context.Context, accountID string) ([]string, []string, error) {
	roles, err := s.repo.RolesOf(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load roles: %w", err)
	}
	rolePerms, err := s.repo.PermissionsOf(ctx, roles)
	if err != nil {
		return nil, nil, fmt.Errorf("load role permissions: %w", err)
	}

	var tier model.SubscriptionTier
	profile, err := s.repo.GetProfile(ctx, accountID)
	switch {
	case err == nil:
		tier = profile.Tier
	case errors.Is(err, store.ErrProfileNotFound):
		s.logger.Warn("account has no profile", slog.String("account_id", accountID))
	default:
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}

	return roles, authz.MergePermissions(rolePerms, authz.PermissionsFor(tier)), nil
}

// burnVerify spends one verification on a throwaway hash so unknown e-mails
// take as long as wrong passwords.
func (s *AccountService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		acct := &model.Account{ID: "dummy"}
		hash, err := s.hasher.Hash(acct, hex.EncodeToString(buf))
		if err != nil {
			return
		}
		acct.PasswordHash = hash
		s.dummy = acct
	})
	if s.dummy != nil {
		_, _ = s.hasher.Verify(s.dummy, password)
	}
}

// ListAccounts returns a page of accounts with their tier and roles.
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*model.AccountSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAccounts(ctx, limit, offset)
}

// SetTier changes an account's subscription tier. It applies from the next
// login.
func (s *AccountService) SetTier(ctx context.Context, accountID string, tier model.SubscriptionTier) error {
	if !tier.IsValid() {
		return NewValidationError(fmt.Sprintf("Subscription tier '%s' is not valid.", tier))
	}
	err := s.repo.UpdateTier(ctx, accountID, tier, s.now())
	if errors.Is(err, store.ErrProfileNotFound) || errors.Is(err, store.ErrAccountNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	s.logger.Info("subscription tier changed",
		slog.String("account_id", accountID),
		slog.String("tier", string(tier)),
	)
	return nil
}

// GrantRole assigns an existing role to an account.
func (s *AccountService) GrantRole(ctx context.Context, accountID, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return NewValidationError("Role is required.")
	}
	err := s.repo.AssignRole(ctx, accountID, role)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrRoleNotFound):
		return NewValidationError(fmt.Sprintf("Role '%s' does not exist.", role))
	default:
		return fmt.Errorf("assign role: %w", err)
	}
	s.logger.Info("role granted",
		slog.String("account_id", accountID),
		slog.String("role", role),
	)
	return nil
}
