// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// Account is a registered principal. Email is stored normalized.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// Soft-delete bookkeeping. Nothing reads these yet.
	DeletedAt *time.Time `json:"-"`
	DeletedBy *string    `json:"-"`
}

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SubscriptionTier is the commercial plan attached to an account's profile.
type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPro  SubscriptionTier = "pro"
)

// IsValid reports whether the tier is one the catalog knows about.
func (t SubscriptionTier) IsValid() bool {
	return t == TierFree || t == TierPro
}

// AccountStatus is the lifecycle state of a subscription.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusInactive  AccountStatus = "inactive"
	StatusSuspended AccountStatus = "suspended"
	StatusPastDue   AccountStatus = "past_due"
	StatusCancelled AccountStatus = "cancelled"
)

// Profile is the account-adjacent row holding tier and preferences.
type Profile struct {
	AccountID           string           `json:"account_id"`
	Tier                SubscriptionTier `json:"subscription_tier"`
	Status              AccountStatus    `json:"status"`
	EnableNotifications bool             `json:"enable_notifications"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NewProfile returns the profile every freshly registered account starts with.
func NewProfile(accountID string, enableNotifications bool, now time.Time) *Profile {
	return &Profile{
		AccountID:           accountID,
		Tier:                TierFree,
		Status:              StatusActive,
		EnableNotifications: enableNotifications,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// AccountSummary is the admin listing view of an account.
type AccountSummary struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Tier      SubscriptionTier `json:"subscription_tier"`
	Status    AccountStatus    `json:"status"`
	Roles     []string         `json:"roles"`
	CreatedAt time.Time        `json:"created_at"`
}
