package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/metrics"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/store"
)

// CampaignRepository is the persistence surface CampaignService needs.
type CampaignRepository interface {
	store.Transactor
	store.CampaignStore
	store.TemplateStore
}

// CampaignService manages campaigns, their targets and their results.
// Every operation is scoped to the calling account; other accounts'
// campaigns look like they do not exist.
type CampaignService struct {
	repo    CampaignRepository
	baseURL string
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewCampaignService creates a new CampaignService. baseURL prefixes the
// tracking links handed out for targets.
func NewCampaignService(repo CampaignRepository, baseURL string, logger *slog.Logger, recorder metrics.Recorder) *CampaignService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignService{
		repo:    repo,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: recorder,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateCampaignInput defines input for creating a campaign.
type CreateCampaignInput struct {
	Name        string
	Description string
	Type        model.CampaignType
	TemplateID  string
	ScheduledAt *time.Time
}

// CreateCampaign creates a draft campaign owned by the principal. SMS
// campaigns additionally need the campaign:sms permission.
func (s *CampaignService) CreateCampaign(ctx context.Context, p *authz.Principal, input CreateCampaignInput) (*model.Campaign, error) {
	ownerID := p.Subject()
	if ownerID == "" {
		return nil, ErrForbidden
	}

	now := s.now()
	v := &validator{}
	v.name("Name", input.Name, true, MaxCampaignName)
	v.name("Description", input.Description, false, MaxDescription)
	if !input.Type.IsValid() {
		v.addf("Type must be one of email, sms or both.")
	}
	if strings.TrimSpace(input.TemplateID) == "" {
		v.addf("Template is required.")
	}
	if input.ScheduledAt != nil && !input.ScheduledAt.After(now) {
		v.addf("Scheduled time must be in the future.")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if input.Type.UsesSMS() && authz.Authorize(p, authz.AnyPermission(model.PermCampaignSMS)) == authz.Deny {
		return nil, ErrForbidden
	}

	tmpl, err := s.repo.GetTemplate(ctx, input.TemplateID)
	if errors.Is(err, store.ErrTemplateNotFound) || (err == nil && !tmpl.VisibleTo(ownerID)) {
		return nil, NewValidationError(fmt.Sprintf("Template '%s' does not exist.", input.TemplateID))
	}
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	campaign := &model.Campaign{
		ID:          ulid.Make().String(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Status:      model.CampaignDraft,
		TemplateID:  tmpl.ID,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	s.metrics.IncCampaignCreated()
	s.logger.Info("campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("owner_id", ownerID),
		slog.String("type", string(campaign.Type)),
	)
	return campaign, nil
}

// GetCampaign returns one of ownerID's campaigns.
func (s *CampaignService) GetCampaign(ctx context.Context, ownerID, id string) (*model.Campaign, error) {
	return s.ownedCampaign(ctx, s.repo, ownerID, id)
}

// ListCampaigns returns ownerID's campaigns, newest first.
func (s *CampaignService) ListCampaigns(ctx context.Context, ownerID string) ([]*model.Campaign, error) {
	return s.repo.ListCampaignsByOwner(ctx, ownerID)
}

// AddTargetInput defines input for adding a campaign target.
type AddTargetInput struct {
	Email       string
	PhoneNumber string
}

// AddedTarget is a new target with its one-time tracking link.
type AddedTarget struct {
	Target      *model.CampaignTarget
	Token       string
	TrackingURL string
}

// AddTarget adds a recipient to a draft or scheduled campaign. The tracking
// token is only returned here; the store keeps its hash.
func (s *CampaignService) AddTarget(ctx context.Context, ownerID, campaignID string, input AddTargetInput) (*AddedTarget, error) {
	campaign, err := s.ownedCampaign(ctx, s.repo, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	if !campaign.Status.AcceptsTargets() {
		return nil, ErrCampaignLocked
	}

	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.PhoneNumber)

	v := &validator{}
	if email != "" || campaign.Type.UsesEmail() {
		v.email("Email", email)
	}
	if phone != "" || campaign.Type.UsesSMS() {
		if phone == "" {
			v.addf("Phone number is required.")
		} else {
			v.phone("Phone number", phone)
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	tok, err := auth.GenerateTrackingToken()
	if err != nil {
		return nil, fmt.Errorf("generate tracking token: %w", err)
	}

	target := &model.CampaignTarget{
		ID:          ulid.Make().String(),
		CampaignID:  campaign.ID,
		PhoneNumber: phone,
		TokenHash:   tok.Hash,
		TokenPrefix: tok.Prefix,
		CreatedAt:   s.now(),
	}
	if email != "" {
		target.Email = model.NormalizeEmail(email)
	}
	if err := s.repo.AddTarget(ctx, target); err != nil {
		return nil, fmt.Errorf("add target: %w", err)
	}

	s.metrics.IncTargetAdded()
	return &AddedTarget{
		Target:      target,
		Token:       tok.Plaintext,
		TrackingURL: s.TrackingURL(tok.Plaintext),
	}, nil
}

// TrackingURL builds the public click link for a tracking token.
func (s *CampaignService) TrackingURL(token string) string {
	return s.baseURL + "/t/" + token
}

// ChangeStatus moves a campaign through its lifecycle. Activating a campaign
// marks every target delivered; completing or cancelling stamps CompletedAt.
func (s *CampaignService) ChangeStatus(ctx context.Context, ownerID, campaignID string, next model.CampaignStatus) (*model.Campaign, error) {
	if !next.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("Status '%s' is not valid.", next))
	}

	var out *model.Campaign
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		campaign, err := s.ownedCampaign(ctx, tx, ownerID, campaignID)
		if err != nil {
			return err
		}
		if !campaign.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, campaign.Status, next)
		}

		now := s.now()
		switch next {
		case model.CampaignActive:
			if campaign.TargetCount == 0 {
				return NewValidationError("Campaign has no targets.")
			}
			campaign.StartedAt = &now
			if _, err := tx.MarkTargetsDelivered(ctx, campaign.ID, now); err != nil {
				return fmt.Errorf("mark delivered: %w", err)
			}
		case model.CampaignCompleted, model.CampaignCancelled:
			campaign.CompletedAt = &now
		}
		campaign.Status = next
		campaign.UpdatedAt = now

		if err := tx.UpdateCampaignStatus(ctx, campaign); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		out = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign status changed",
		slog.String("campaign_id", out.ID),
		slog.String("status", string(out.Status)),
	)
	return out, nil
}

// CampaignResults is a campaign with its per-target results.
type CampaignResults struct {
	Campaign *model.Campaign
	Results  []*model.CampaignResult
	Summary  model.ResultSummary
}

// Results returns per-target outcomes and their summary.
func (s *CampaignService) Results(ctx context.Context, ownerID, campaignID string) (*CampaignResults, error) {
	campaign, err := s.ownedCampaign(ctx, s.repo, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	results, err := s.repo.ListResults(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &CampaignResults{
		Campaign: campaign,
		Results:  results,
		Summary:  model.Summarize(results),
	}, nil
}

func (s *CampaignService) ownedCampaign(ctx context.Context, campaigns store.CampaignStore, ownerID, id string) (*model.Campaign, error) {
	campaign, err := campaigns.GetCampaign(ctx, id)
	if errors.Is(err, store.ErrCampaignNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if campaign.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return campaign, nil
}
