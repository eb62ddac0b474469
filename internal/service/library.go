package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

// LibraryRepository is the persistence surface LibraryService needs.
type LibraryRepository interface {
	store.TemplateStore
	store.ContentStore
}

// LibraryService serves phishing templates and educational content.
type LibraryService struct {
	repo   LibraryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(repo LibraryRepository, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListTemplates returns the built-in templates plus accountID's own.
func (s *LibraryService) ListTemplates(ctx context.Context, accountID string) ([]*model.PhishingTemplate, error) {
	return s.repo.ListTemplates(ctx, accountID)
}

// CreateTemplateInput defines input for creating a custom template.
type CreateTemplateInput struct {
	Name        string
	Description string
	Subject     string
	Body        string
	SMSBody     string
	LandingURL  string
	Difficulty  model.Difficulty
	Category    string
}

// CreateTemplate stores a custom template visible only to accountID.
func (s *LibraryService) CreateTemplate(ctx context.Context, accountID string, input CreateTemplateInput) (*model.PhishingTemplate, error) {
	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}

	v := &validator{}
	v.name("Name", input.Name, true, MaxCampaignName)
	v.name("Description", input.Description, false, MaxDescription)
	v.name("Subject", input.Subject, false, MaxCampaignName)
	v.name("Body", input.Body, false, MaxTemplateBody)
	v.name("SMS body", input.SMSBody, false, MaxSMSBodyLength)
	v.name("Category", input.Category, false, MaxNameLength)
	if strings.TrimSpace(input.Body) == "" && strings.TrimSpace(input.SMSBody) == "" {
		v.addf("Body or SMS body is required.")
	}
	if input.LandingURL != "" {
		v.landingURL("Landing URL", input.LandingURL)
	}
	if !difficulty.IsValid() {
		v.addf("Difficulty must be one of easy, medium, hard or expert.")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	owner := accountID
	tmpl := &model.PhishingTemplate{
		ID:          ulid.Make().String(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Subject:     strings.TrimSpace(input.Subject),
		Body:        input.Body,
		SMSBody:     input.SMSBody,
		LandingURL:  input.LandingURL,
		Difficulty:  difficulty,
		Category:    strings.TrimSpace(input.Category),
		IsCustom:    true,
		CreatedBy:   &owner,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateTemplate(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	s.logger.Info("template created",
		slog.String("template_id", tmpl.ID),
		slog.String("account_id", accountID),
	)
	return tmpl, nil
}

// ListContent returns active lessons matching filter.
func (s *LibraryService) ListContent(ctx context.Context, filter model.ContentFilter) ([]*model.EducationalContent, error) {
	if filter.Difficulty != "" && !filter.Difficulty.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("Difficulty '%s' is not valid.", filter.Difficulty))
	}
	return s.repo.ListContent(ctx, filter)
}
