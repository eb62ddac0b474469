// Package store declares the persistence ports the services depend on.
// internal/repository implements them on Postgres and internal/store/memstore
// in memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/phishdrill/phishdrill/internal/model"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrEmailExists      = errors.New("email already registered")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrRoleExists       = errors.New("role already exists")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrTargetNotFound   = errors.New("tracking target not found")
)

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	ListAccounts(ctx context.Context, limit, offset int) ([]*model.AccountSummary, error)
}

// ProfileStore persists subscription profiles.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, accountID string) (*model.Profile, error)
	UpdateTier(ctx context.Context, accountID string, tier model.SubscriptionTier, at time.Time) error
}

// RoleStore persists roles, their permission claims and role assignments.
type RoleStore interface {
	// EnsureRole creates the role with permissions when absent. An existing
	// role is left untouched. Returns whether it was created.
	EnsureRole(ctx context.Context, name string, permissions []string) (bool, error)
	AssignRole(ctx context.Context, accountID, roleName string) error
	RolesOf(ctx context.Context, accountID string) ([]string, error)
	PermissionsOf(ctx context.Context, roleNames []string) ([]string, error)
}

// CampaignStore persists campaigns and their targets and results.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *model.Campaign) error
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaignsByOwner(ctx context.Context, ownerID string) ([]*model.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaign *model.Campaign) error
	AddTarget(ctx context.Context, target *model.CampaignTarget) error
	MarkTargetsDelivered(ctx context.Context, campaignID string, at time.Time) (int64, error)
	ListResults(ctx context.Context, campaignID string) ([]*model.CampaignResult, error)
	ResolveTrackingToken(ctx context.Context, tokenHash string) (*model.TrackingTarget, error)
}

// TemplateStore persists phishing templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, tmpl *model.PhishingTemplate) error
	GetTemplate(ctx context.Context, id string) (*model.PhishingTemplate, error)
	ListTemplates(ctx context.Context, accountID string) ([]*model.PhishingTemplate, error)
}

// ContentStore reads the educational library.
type ContentStore interface {
	ListContent(ctx context.Context, filter model.ContentFilter) ([]*model.EducationalContent, error)
}

// ResultStore folds tracking events into campaign results. Events already
// recorded (same EventID) and events for campaigns that are not active are
// skipped. Returns how many were applied.
type ResultStore interface {
	RecordTrackingEvents(ctx context.Context, events []model.TrackingEvent) (int, error)
}

// Tx is the set of stores usable inside a transaction.
type Tx interface {
	AccountStore
	ProfileStore
	RoleStore
	CampaignStore
	TemplateStore
	ContentStore
}

// Transactor runs fn in a single transaction. fn's error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is the full persistence surface.
type Store interface {
	Tx
	Transactor
	ResultStore
}
