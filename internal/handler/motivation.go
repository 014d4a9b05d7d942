package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/citievents/internal/dailypick"
	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/model"
)

// MotivationLister is the backend's motivation collection.
type MotivationLister interface {
	ListMotivations(ctx context.Context) ([]model.Motivation, error)
}

type MotivationHandler struct {
	picker *dailypick.Picker
	source MotivationLister
	syncer *listing.Syncer
	logger *slog.Logger
}

func NewMotivationHandler(picker *dailypick.Picker, source MotivationLister, syncer *listing.Syncer, logger *slog.Logger) *MotivationHandler {
	return &MotivationHandler{picker: picker, source: source, syncer: syncer, logger: logger}
}

type motivationResponse struct {
	Date       string `json:"date"`
	Motivation string `json:"motivation"`
}

// motivations fetches the current set, falling back to the legacy records
// of the listing collection when the motivation endpoint is unreachable.
func (h *MotivationHandler) motivations(ctx context.Context) ([]model.Motivation, error) {
	list, err := h.source.ListMotivations(ctx)
	if err == nil {
		return list, nil
	}
	if h.syncer != nil {
		if snap := h.syncer.Snapshot(); snap.Generation > 0 {
			h.logger.Warn("motivation list unavailable, using listing records", "error", err)
			return listing.Motivations(snap.Motivations), nil
		}
	}
	return nil, err
}

func (h *MotivationHandler) Today(w http.ResponseWriter, r *http.Request) {
	list, err := h.motivations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "load motivations", err)
		return
	}
	text, err := h.picker.GetTodayPick(r.Context(), list)
	if err != nil && !errors.Is(err, dailypick.ErrNoMotivations) {
		writeError(w, r, h.logger, "pick motivation", err)
		return
	}
	writeJSON(w, http.StatusOK, motivationResponse{Date: h.picker.Today(), Motivation: text})
}

// Refresh draws a new motivation for display only; today's stored pick is
// left alone.
func (h *MotivationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	list, err := h.motivations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "load motivations", err)
		return
	}
	text, err := h.picker.Refresh(list)
	if err != nil && !errors.Is(err, dailypick.ErrNoMotivations) {
		writeError(w, r, h.logger, "refresh motivation", err)
		return
	}
	writeJSON(w, http.StatusOK, motivationResponse{Date: h.picker.Today(), Motivation: text})
}

// Current returns what the console last displayed, without drawing.
func (h *MotivationHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, motivationResponse{Date: h.picker.Today(), Motivation: h.picker.Current()})
}
