package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/reaction"
	"github.com/dukerupert/citievents/internal/rsvp"
	"github.com/dukerupert/citievents/internal/websocket"
)

// InteractionHandler serves the visitor-side like and RSVP actions.
type InteractionHandler struct {
	toggler *reaction.Toggler
	rsvps   *rsvp.Service
	syncer  *listing.Syncer
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewInteractionHandler(toggler *reaction.Toggler, rsvps *rsvp.Service, syncer *listing.Syncer, hub *websocket.Hub, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{toggler: toggler, rsvps: rsvps, syncer: syncer, hub: hub, logger: logger}
}

func (h *InteractionHandler) Like(w http.ResponseWriter, r *http.Request) {
	eventID := model.ID(r.PathValue("id"))
	st, err := h.toggler.Toggle(r.Context(), eventID)
	if err != nil {
		writeError(w, r, h.logger, "toggle like", err)
		return
	}

	h.logger.Debug("like toggled", "event_id", eventID, "liked", st.Liked, "count", st.Count)
	broadcast(h.hub, websocket.NewMessage("like", "toggled", eventID, map[string]any{
		"likeCount": st.Count,
	}))
	writeJSON(w, http.StatusOK, st)
}

// LikeState returns the caller's last confirmed like state for an event.
func (h *InteractionHandler) LikeState(w http.ResponseWriter, r *http.Request) {
	eventID := model.ID(r.PathValue("id"))
	st, ok, err := h.toggler.State(r.Context(), eventID)
	if err != nil {
		writeError(w, r, h.logger, "get like state", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, model.ReactionState{EventID: eventID})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// LikeCounts returns the like counts confirmed by toggles made through this
// console.
func (h *InteractionHandler) LikeCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.toggler.Counts())
}

func (h *InteractionHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	var req rsvp.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.syncer != nil && req.EventID != "" {
		if snap := h.syncer.Snapshot(); snap.Generation > 0 {
			if _, ok := listing.Find(snap.Events, req.EventID); !ok {
				writeJSON(w, http.StatusNotFound, errorJSON("event not found"))
				return
			}
		}
	}

	counts, err := h.rsvps.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, "submit rsvp", err)
		return
	}

	broadcast(h.hub, websocket.NewMessage("rsvp", "submitted", req.EventID, map[string]any{
		"count": counts[req.EventID.String()],
	}))
	writeJSON(w, http.StatusCreated, map[string]any{"rsvpCounts": counts})
}

func (h *InteractionHandler) RSVPCounts(w http.ResponseWriter, r *http.Request) {
	counts := h.rsvps.Counts()
	if len(counts) == 0 {
		var err error
		if counts, err = h.rsvps.Reload(r.Context()); err != nil {
			writeError(w, r, h.logger, "load rsvp counts", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, counts)
}
