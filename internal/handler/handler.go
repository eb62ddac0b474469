// Package handler translates HTTP requests into service calls.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/phishdrill/phishdrill/internal/handler/dto"
	"github.com/phishdrill/phishdrill/internal/service"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handler serves the routes that belong to no particular resource.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is the root info endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "phishdrill",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorJSON(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorJSON(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeErrorJSON writes the standard error envelope.
func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorDetail{Code: code, Message: message}})
}

// writeValidationErrors writes 400 {"errors":[...]}.
func writeValidationErrors(w http.ResponseWriter, msgs []string) {
	writeJSON(w, http.StatusBadRequest, dto.ValidationErrorResponse{Errors: msgs})
}

// decodeJSON reads a JSON request body into dst. An empty body is an error.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// writeInvalidJSON reports an undecodable body.
func writeInvalidJSON(w http.ResponseWriter) {
	writeErrorJSON(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if ve, ok := service.AsValidationError(err); ok {
		writeValidationErrors(w, ve.Errors)
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, service.ErrForbidden):
		writeErrorJSON(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
	case errors.Is(err, service.ErrInvalidTransition):
		writeErrorJSON(w, http.StatusConflict, "INVALID_TRANSITION", "Campaign cannot move to that status")
	case errors.Is(err, service.ErrCampaignLocked):
		writeErrorJSON(w, http.StatusConflict, "CAMPAIGN_LOCKED", "Campaign no longer accepts targets")
	default:
		logger.Error("internal error", slog.String("error", err.Error()))
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
