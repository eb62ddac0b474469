package dto

import (
	"time"

	"github.com/phishdrill/phishdrill/internal/model"
)

// CreateCampaignRequest is the body of POST /api/v1/campaigns.
type CreateCampaignRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        model.CampaignType `json:"type"`
	TemplateID  string             `json:"template_id"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
}

// CampaignListResponse lists campaigns.
type CampaignListResponse struct {
	Data []*model.Campaign `json:"data"`
}

// AddTargetRequest is the body of POST /api/v1/campaigns/{id}/targets.
type AddTargetRequest struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// TargetResponse is a new target with its tracking link. The token is not
// retrievable again.
type TargetResponse struct {
	*model.CampaignTarget
	TrackingToken string `json:"tracking_token"`
	TrackingURL   string `json:"tracking_url"`
}

// ChangeStatusRequest is the body of POST /api/v1/campaigns/{id}/status.
type ChangeStatusRequest struct {
	Status model.CampaignStatus `json:"status"`
}

// ResultsResponse is a campaign's per-target results and their summary.
type ResultsResponse struct {
	Campaign *model.Campaign         `json:"campaign"`
	Results  []*model.CampaignResult `json:"results"`
	Summary  model.ResultSummary     `json:"summary"`
}
