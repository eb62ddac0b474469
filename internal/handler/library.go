package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/handler/dto"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/service"
)

// LibraryService is what LibraryHandler needs from the service layer.
type LibraryService interface {
	ListTemplates(ctx context.Context, accountID string) ([]*model.PhishingTemplate, error)
	CreateTemplate(ctx context.Context, accountID string, input service.CreateTemplateInput) (*model.PhishingTemplate, error)
	ListContent(ctx context.Context, filter model.ContentFilter) ([]*model.EducationalContent, error)
}

// LibraryHandler serves phishing templates and educational content.
type LibraryHandler struct {
	svc    LibraryService
	logger *slog.Logger
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(svc LibraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{svc: svc, logger: logger}
}

// ListTemplates handles GET /api/v1/templates.
func (h *LibraryHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context(), auth.AccountIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TemplateListResponse{Data: templates})
}

// CreateTemplate handles POST /api/v1/templates.
func (h *LibraryHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	tmpl, err := h.svc.CreateTemplate(r.Context(), auth.AccountIDFromContext(r.Context()), service.CreateTemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Subject:     req.Subject,
		Body:        req.Body,
		SMSBody:     req.SMSBody,
		LandingURL:  req.LandingURL,
		Difficulty:  req.Difficulty,
		Category:    req.Category,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

// ListContent handles GET /api/v1/content?difficulty=&category=.
func (h *LibraryHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	content, err := h.svc.ListContent(r.Context(), model.ContentFilter{
		Difficulty: model.Difficulty(q.Get("difficulty")),
		Category:   q.Get("category"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ContentListResponse{Data: content})
}
