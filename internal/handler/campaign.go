package handler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/authz"
	"github.com/phishdrill/phishdrill/internal/handler/dto"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/service"
)

// CampaignService is what CampaignHandler needs from the service layer.
type CampaignService interface {
	CreateCampaign(ctx context.Context, p *authz.Principal, input service.CreateCampaignInput) (*model.Campaign, error)
	GetCampaign(ctx context.Context, ownerID, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, ownerID string) ([]*model.Campaign, error)
	AddTarget(ctx context.Context, ownerID, campaignID string, input service.AddTargetInput) (*service.AddedTarget, error)
	ChangeStatus(ctx context.Context, ownerID, campaignID string, next model.CampaignStatus) (*model.Campaign, error)
	Results(ctx context.Context, ownerID, campaignID string) (*service.CampaignResults, error)
}

// CampaignHandler handles HTTP requests for campaign operations.
type CampaignHandler struct {
	svc    CampaignService
	logger *slog.Logger
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(svc CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/campaigns.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	campaign, err := h.svc.CreateCampaign(r.Context(), auth.PrincipalFromContext(r.Context()), service.CreateCampaignInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		TemplateID:  req.TemplateID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

// List handles GET /api/v1/campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.svc.ListCampaigns(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CampaignListResponse{Data: campaigns})
}

// Get handles GET /api/v1/campaigns/{id}.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.svc.GetCampaign(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// AddTarget handles POST /api/v1/campaigns/{id}/targets.
func (h *CampaignHandler) AddTarget(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	added, err := h.svc.AddTarget(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "id"), service.AddTargetInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TargetResponse{
		CampaignTarget: added.Target,
		TrackingToken:  added.Token,
		TrackingURL:    added.TrackingURL,
	})
}

// ChangeStatus handles POST /api/v1/campaigns/{id}/status.
func (h *CampaignHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	campaign, err := h.svc.ChangeStatus(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// Results handles GET /api/v1/campaigns/{id}/results.
func (h *CampaignHandler) Results(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Results(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ResultsResponse{
		Campaign: res.Campaign,
		Results:  res.Results,
		Summary:  res.Summary,
	})
}

var resultCSVHeader = []string{
	"target_id", "email", "phone_number", "result", "score",
	"delivered_at", "opened_at", "clicked_at", "submitted_at", "reported_at",
}

// ExportResults handles GET /api/v1/campaigns/{id}/results.csv.
func (h *CampaignHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Results(r.Context(), auth.AccountIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="campaign-`+res.Campaign.ID+`-results.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(resultCSVHeader)
	for _, row := range res.Results {
		_ = cw.Write([]string{
			row.TargetID,
			row.Email,
			row.PhoneNumber,
			string(row.Result),
			strconv.Itoa(row.Score),
			formatTime(row.DeliveredAt),
			formatTime(row.OpenedAt),
			formatTime(row.ClickedAt),
			formatTime(row.SubmittedAt),
			formatTime(row.ReportedAt),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("results export interrupted",
			slog.String("campaign_id", res.Campaign.ID),
			slog.String("error", err.Error()),
		)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
