package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/citievents/internal/admin"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/websocket"
)

// AdminHandler serves the dashboard's mutations. Routes are mounted behind
// middleware.RequireAdmin, which puts the caller's backend token on the
// request context.
type AdminHandler struct {
	admin  *admin.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewAdminHandler(svc *admin.Service, hub *websocket.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: svc, hub: hub, logger: logger}
}

func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	var fields model.EventFields
	if !decodeJSON(w, r, &fields) {
		return
	}
	if err := h.admin.UpdateEvent(r.Context(), id, fields); err != nil {
		writeError(w, r, h.logger, "update event", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("event", "updated", id, nil))
	writeJSON(w, http.StatusOK, fields)
}

// DeleteItem deletes an event, or an announcement when ?type=announcement.
func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	typ := model.ItemType(r.URL.Query().Get("type"))
	if err := h.admin.DeleteItem(r.Context(), typ, id); err != nil {
		writeError(w, r, h.logger, "delete item", err)
		return
	}
	entity := string(typ)
	if entity == "" {
		entity = string(model.TypeEvent)
	}
	broadcast(h.hub, websocket.NewMessage(entity, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Upload creates an event or announcement. Files travel base64-encoded in
// the JSON body, the same shape the backend takes.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var form admin.UploadForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if err := h.admin.CreateItem(r.Context(), form); err != nil {
		writeError(w, r, h.logger, "create item", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage(string(form.Type), "created", "", map[string]any{
		"title": form.Title,
	}))
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

type addMediaRequest struct {
	Files []model.FileUpload `json:"files"`
}

func (h *AdminHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	var req addMediaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin.AddMedia(r.Context(), id, req.Files); err != nil {
		writeError(w, r, h.logger, "add media", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("media", "added", id, map[string]any{
		"count": len(req.Files),
	}))
	writeJSON(w, http.StatusCreated, map[string]int{"added": len(req.Files)})
}

func (h *AdminHandler) ListMotivations(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListMotivations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "list motivations", err)
		return
	}
	writeMotivations(w, http.StatusOK, list)
}

type motivationRequest struct {
	Motivation string `json:"motivation"`
}

func (h *AdminHandler) CreateMotivation(w http.ResponseWriter, r *http.Request) {
	var req motivationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	list, err := h.admin.CreateMotivation(r.Context(), req.Motivation)
	if err != nil {
		writeError(w, r, h.logger, "create motivation", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("motivation", "created", "", nil))
	writeMotivations(w, http.StatusCreated, list)
}

func (h *AdminHandler) UpdateMotivation(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	var req motivationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	list, err := h.admin.UpdateMotivation(r.Context(), id, req.Motivation)
	if err != nil {
		writeError(w, r, h.logger, "update motivation", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("motivation", "updated", id, nil))
	writeMotivations(w, http.StatusOK, list)
}

func (h *AdminHandler) DeleteMotivation(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	list, err := h.admin.DeleteMotivation(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, "delete motivation", err)
		return
	}
	broadcast(h.hub, websocket.NewMessage("motivation", "deleted", id, nil))
	writeMotivations(w, http.StatusOK, list)
}

func writeMotivations(w http.ResponseWriter, status int, list []model.Motivation) {
	if list == nil {
		list = []model.Motivation{}
	}
	writeJSON(w, status, list)
}
