package model

import "time"

// CampaignType selects the delivery channels of a campaign.
type CampaignType string

const (
	CampaignEmail CampaignType = "email"
	CampaignSMS   CampaignType = "sms"
	CampaignBoth  CampaignType = "both"
)

// IsValid checks if the campaign type is known.
func (t CampaignType) IsValid() bool {
	switch t {
	case CampaignEmail, CampaignSMS, CampaignBoth:
		return true
	}
	return false
}

// UsesEmail reports whether targets need an email address.
func (t CampaignType) UsesEmail() bool { return t == CampaignEmail || t == CampaignBoth }

// UsesSMS reports whether targets need a phone number.
func (t CampaignType) UsesSMS() bool { return t == CampaignSMS || t == CampaignBoth }

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignCancelled},
	CampaignScheduled: {CampaignActive, CampaignCancelled, CampaignDraft},
	CampaignActive:    {CampaignCompleted, CampaignCancelled},
}

// IsValid checks if the status is known.
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignActive, CampaignCompleted, CampaignCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignCompleted || s == CampaignCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsTargets reports whether targets may still be added.
func (s CampaignStatus) AcceptsTargets() bool {
	return s == CampaignDraft || s == CampaignScheduled
}

// Campaign is a simulated phishing exercise owned by one account.
type Campaign struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        CampaignType   `json:"type"`
	Status      CampaignStatus `json:"status"`
	TemplateID  string         `json:"template_id"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	TargetCount int64          `json:"target_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CampaignTarget is one recipient of a campaign.
type CampaignTarget struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	TokenHash   string    `json:"-"`
	TokenPrefix string    `json:"token_prefix"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackingTarget is what the public tracking routes resolve a token to.
type TrackingTarget struct {
	TargetID       string         `json:"target_id"`
	CampaignID     string         `json:"campaign_id"`
	CampaignStatus CampaignStatus `json:"campaign_status"`
	LandingURL     string         `json:"landing_url"`
}
