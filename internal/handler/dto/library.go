package dto

import "github.com/phishdrill/phishdrill/internal/model"

// CreateTemplateRequest is the body of POST /api/v1/templates.
type CreateTemplateRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Subject     string           `json:"subject,omitempty"`
	Body        string           `json:"body,omitempty"`
	SMSBody     string           `json:"sms_body,omitempty"`
	LandingURL  string           `json:"landing_url,omitempty"`
	Difficulty  model.Difficulty `json:"difficulty,omitempty"`
	Category    string           `json:"category,omitempty"`
}

// TemplateListResponse lists templates.
type TemplateListResponse struct {
	Data []*model.PhishingTemplate `json:"data"`
}

// ContentListResponse lists educational content.
type ContentListResponse struct {
	Data []*model.EducationalContent `json:"data"`
}
