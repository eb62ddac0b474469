package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/handler/dto"
	"github.com/phishdrill/phishdrill/internal/model"
)

// AccountAdmin is the account administration surface of the service layer.
type AccountAdmin interface {
	ListAccounts(ctx context.Context, limit, offset int) ([]*model.AccountSummary, error)
	SetTier(ctx context.Context, accountID string, tier model.SubscriptionTier) error
	GrantRole(ctx context.Context, accountID, role string) error
}

// AdminHandler provides administrator endpoints over accounts.
type AdminHandler struct {
	svc    AccountAdmin
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AccountAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// ListAccounts handles GET /api/v1/admin/accounts?limit=&offset=.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	accounts, err := h.svc.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountListResponse{
		Data:       accounts,
		Pagination: dto.OffsetPagination{Limit: limit, Offset: offset},
	})
}

// SetTier handles PUT /api/v1/admin/accounts/{id}/tier.
func (h *AdminHandler) SetTier(w http.ResponseWriter, r *http.Request) {
	var req dto.SetTierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	accountID := chi.URLParam(r, "id")
	if err := h.svc.SetTier(r.Context(), accountID, req.Tier); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin changed tier",
		slog.String("admin_id", auth.AccountIDFromContext(r.Context())),
		slog.String("account_id", accountID),
		slog.String("tier", string(req.Tier)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// GrantRole handles POST /api/v1/admin/accounts/{id}/roles.
func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req dto.GrantRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	accountID := chi.URLParam(r, "id")
	if err := h.svc.GrantRole(r.Context(), accountID, req.Role); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin granted role",
		slog.String("admin_id", auth.AccountIDFromContext(r.Context())),
		slog.String("account_id", accountID),
		slog.String("role", req.Role),
	)
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
