// Package handler serves the console's JSON API on top of the listing,
// interaction and admin services.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/auth"
	"github.com/dukerupert/citievents/internal/media"
	"github.com/dukerupert/citievents/internal/middleware"
	"github.com/dukerupert/citievents/internal/validate"
	"github.com/dukerupert/citievents/internal/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeJSON reads the request body into v and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON("invalid JSON"))
		return false
	}
	return true
}

// writeError maps a service error onto a response. Backend failures keep
// the server's own message so the console can show it verbatim.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	var re *api.RequestError
	switch {
	case validate.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorJSON(err.Error()))
	case api.IsUnauthorized(err):
		if auth.IsAdmin(r.Context()) {
			// The stored token was rejected.
			middleware.ClearSession(w)
		}
		middleware.RedirectToLogin(w, r)
	case errors.Is(err, media.ErrNoSession), errors.Is(err, media.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, errorJSON(err.Error()))
	case errors.Is(err, media.ErrUnknownMedia):
		writeJSON(w, http.StatusNotFound, errorJSON("media not found"))
	case errors.As(err, &re):
		logger.Warn(op+" failed", "kind", re.Kind, "status", re.Status, "error", err)
		writeJSON(w, http.StatusBadGateway, errorJSON(re.Message))
	default:
		logger.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON("failed to "+op))
	}
}

func broadcast(hub *websocket.Hub, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(msg)
	}
}
