package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phishdrill/phishdrill/internal/middleware"
	"github.com/phishdrill/phishdrill/internal/model"
	"github.com/phishdrill/phishdrill/internal/service"
)

// Tracker records interactions behind a tracking token.
type Tracker interface {
	Track(ctx context.Context, token string, kind model.EventKind, visit service.Visit) (*model.TrackingTarget, error)
}

// transparentGIF is a 1x1 transparent GIF.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// maxSubmitDrain bounds how much of a submitted form is read (and discarded).
const maxSubmitDrain = 64 << 10

// TrackingHandler serves the public routes embedded in lures.
type TrackingHandler struct {
	tracker Tracker
	logger  *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(tracker Tracker, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{tracker: tracker, logger: logger}
}

// Click handles GET /t/{token}: records a click and redirects to the
// landing page.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	target, ok := h.track(w, r, model.EventClick)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=0")
	http.Redirect(w, r, target.LandingURL, http.StatusFound)
}

// Open handles GET /t/{token}/open: records an open and serves a pixel.
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.track(w, r, model.EventOpen); !ok {
		return
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

// Submit handles POST /t/{token}/submit. The submitted form is read and
// thrown away; only the fact that something was submitted is recorded.
func (h *TrackingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxSubmitDrain))
	}
	target, ok := h.track(w, r, model.EventSubmit)
	if !ok {
		return
	}
	http.Redirect(w, r, target.LandingURL, http.StatusSeeOther)
}

// Report handles POST /t/{token}/report.
func (h *TrackingHandler) Report(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.track(w, r, model.EventReport); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackingHandler) track(w http.ResponseWriter, r *http.Request, kind model.EventKind) (*model.TrackingTarget, bool) {
	target, err := h.tracker.Track(r.Context(), chi.URLParam(r, "token"), kind, service.Visit{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case err == nil:
		return target, true
	case errors.Is(err, service.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	default:
		h.logger.Error("tracking failed",
			slog.String("kind", string(kind)),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
	return nil, false
}
