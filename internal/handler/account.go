package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phishdrill/phishdrill/internal/auth"
	"github.com/phishdrill/phishdrill/internal/handler/dto"
	"github.com/phishdrill/phishdrill/internal/middleware"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/service"
)

// AccountService is what AccountHandler needs from the service layer.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.Account, error)
	Login(ctx context.Context, email, password string) (*auth.Token, error)
}

// AccountHandler serves registration, login and the caller's own claims.
type AccountHandler struct {
	svc    AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Register handles POST /register-user.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationErrors(w, []string{"Request body must be a JSON object."})
		return
	}

	account, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:               req.Email,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Password:            req.Password,
		EnableNotifications: req.EnableNotifications,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToRegisterResponse(account))
}

// Login handles POST /login. Every failure is a bare 401 so callers cannot
// tell unknown accounts from wrong passwords.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.logger.Info("login failed",
			slog.String("ip", middleware.ClientIP(r)),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{AccessToken: token.AccessToken})
}

// Me handles GET /me: every claim type of the caller's token mapped to its
// comma-joined values.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	claims := p.Claims()
	out := make(map[string]string, len(claims))
	for typ, values := range claims {
		out[typ] = strings.Join(values, ",")
	}
	writeJSON(w, http.StatusOK, out)
}
