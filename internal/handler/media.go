package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dukerupert/citievents/internal/media"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/websocket"
)

// Refresher re-syncs the listing after a media session saves.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// MediaHandler drives the media edit session of the console. There is one
// session at a time; opening another event's media replaces it.
type MediaHandler struct {
	backend   media.Backend
	persister media.ReorderPersister
	refresher Refresher
	hub       *websocket.Hub
	logger    *slog.Logger

	mu      sync.Mutex
	session *media.Session
}

func NewMediaHandler(backend media.Backend, persister media.ReorderPersister, refresher Refresher, hub *websocket.Hub, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		backend:   backend,
		persister: persister,
		refresher: refresher,
		hub:       hub,
		logger:    logger,
	}
}

type mediaResponse struct {
	EventID model.ID      `json:"eventId"`
	State   media.State   `json:"state"`
	Media   []model.Media `json:"media"`
}

func newMediaResponse(s *media.Session, list []model.Media) mediaResponse {
	if list == nil {
		list = []model.Media{}
	}
	return mediaResponse{EventID: s.EventID(), State: s.State(), Media: list}
}

// current returns the open session for eventID.
func (h *MediaHandler) current(eventID model.ID) (*media.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil || h.session.EventID() != eventID {
		return nil, media.ErrNoSession
	}
	return h.session, nil
}

func (h *MediaHandler) Open(w http.ResponseWriter, r *http.Request) {
	eventID := model.ID(r.PathValue("id"))
	opts := []media.Option{media.WithLogger(h.logger)}
	if h.persister != nil {
		opts = append(opts, media.WithPersister(h.persister))
	}
	s := media.NewSession(h.backend, opts...)

	list, err := s.Open(r.Context(), eventID)
	if err != nil {
		writeError(w, r, h.logger, "open media", err)
		return
	}

	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, newMediaResponse(s, list))
}

type moveRequest struct {
	Src int  `json:"src"`
	Dst *int `json:"dst"`
}

func (h *MediaHandler) Move(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(model.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, h.logger, "move media", err)
		return
	}
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	list, err := s.Move(req.Src, req.Dst)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, newMediaResponse(s, list))
}

// Delete removes one media item from the open session's event.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mediaID := model.ID(r.PathValue("id"))

	h.mu.Lock()
	s := h.session
	h.mu.Unlock()
	if s == nil {
		writeError(w, r, h.logger, "delete media", media.ErrNoSession)
		return
	}

	list, err := s.Delete(r.Context(), mediaID)
	if err != nil {
		writeError(w, r, h.logger, "delete media", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("media", "deleted", mediaID, map[string]any{
		"eventId": s.EventID(),
	}))
	writeJSON(w, http.StatusOK, newMediaResponse(s, list))
}

func (h *MediaHandler) Save(w http.ResponseWriter, r *http.Request) {
	eventID := model.ID(r.PathValue("id"))
	s, err := h.current(eventID)
	if err != nil {
		writeError(w, r, h.logger, "save event", err)
		return
	}
	var fields model.EventFields
	if !decodeJSON(w, r, &fields) {
		return
	}
	if err := s.Save(r.Context(), fields); err != nil {
		writeError(w, r, h.logger, "save event", err)
		return
	}
	if h.refresher != nil {
		if err := h.refresher.Refresh(r.Context()); err != nil {
			h.logger.Warn("refresh after media save failed", "event_id", eventID, "error", err)
		}
	}
	broadcast(h.hub, websocket.NewMessage("event", "updated", eventID, nil))
	writeJSON(w, http.StatusOK, newMediaResponse(s, s.Media()))
}

func (h *MediaHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, err := h.current(model.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, h.logger, "cancel media", err)
		return
	}
	if err := s.Cancel(); err != nil {
		writeError(w, r, h.logger, "cancel media", err)
		return
	}
	writeJSON(w, http.StatusOK, newMediaResponse(s, s.Media()))
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }
