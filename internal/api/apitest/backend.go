// Package apitest provides an in-memory fake of the events backend for
// tests of packages that sit on top of the API client.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dukerupert/citievents/internal/model"
)

// Backend is a fake backend. Exported fields may be seeded before use and
// inspected afterwards; take Lock/Unlock around access while requests may
// be in flight.
type Backend struct {
	sync.Mutex

	Items       []model.Item
	Motivations []model.Motivation
	Media       map[model.ID][]model.Media
	RSVPCounts  model.Counts
	RSVPs       []model.RSVP
	Uploads     []map[string]any
	Updates     map[model.ID]model.EventFields

	// Token, when set, is required as a bearer token on mutating requests.
	Token string

	likes      map[string]bool
	likeCounts map[model.ID]int
	calls      map[string]int
	failures   map[string]failure
	nextID     int
	server     *httptest.Server
}

type failure struct {
	status  int
	message string
}

// New starts a fake backend that is closed when the test ends.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		Media:      make(map[model.ID][]model.Media),
		RSVPCounts: model.Counts{},
		Updates:    make(map[model.ID]model.EventFields),
		likes:      make(map[string]bool),
		likeCounts: make(map[model.ID]int),
		calls:      make(map[string]int),
		failures:   make(map[string]failure),
		nextID:     1000,
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

// Fail makes every request matching "METHOD /path" answer with status and
// an error message body.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.Lock()
	defer b.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// Recover clears a failure set by Fail.
func (b *Backend) Recover(method, path string) {
	b.Lock()
	defer b.Unlock()
	delete(b.failures, method+" "+path)
}

// Calls returns how many requests matched "METHOD /path".
func (b *Backend) Calls(method, path string) int {
	b.Lock()
	defer b.Unlock()
	return b.calls[method+" "+path]
}

// SetLikeCount seeds the like count of an event.
func (b *Backend) SetLikeCount(eventID model.ID, n int) {
	b.Lock()
	defer b.Unlock()
	b.likeCounts[eventID] = n
}

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", b.listItems)
	mux.HandleFunc("GET /events/{id}", b.getEvent)
	mux.HandleFunc("GET /events/{id}/media", b.listMedia)
	mux.HandleFunc("PUT /events/{id}", b.mutating(b.updateEvent))
	mux.HandleFunc("DELETE /events/{id}", b.mutating(b.deleteItem))
	mux.HandleFunc("DELETE /announcements/{id}", b.mutating(b.deleteItem))
	mux.HandleFunc("GET /announcements", b.listAnnouncements)
	mux.HandleFunc("DELETE /media/{id}", b.mutating(b.deleteMedia))
	mux.HandleFunc("POST /events/{id}/add-media", b.mutating(b.addMedia))
	mux.HandleFunc("POST /upload-events", b.mutating(b.upload))
	mux.HandleFunc("POST /upload-poster", b.mutating(b.uploadPoster))
	mux.HandleFunc("GET /motivation", b.listMotivations)
	mux.HandleFunc("POST /motivation", b.mutating(b.createMotivation))
	mux.HandleFunc("PUT /motivation/{id}", b.mutating(b.updateMotivation))
	mux.HandleFunc("DELETE /motivation/{id}", b.mutating(b.deleteMotivation))
	mux.HandleFunc("GET /rsvp-counts", b.rsvpCounts)
	mux.HandleFunc("POST /submit-rsvp", b.submitRSVP)
	mux.HandleFunc("POST /event-likes/toggle", b.toggleLike)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.Lock()
		b.calls[key]++
		f, failing := b.failures[key]
		b.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (b *Backend) mutating(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.Lock()
		token := b.Token
		b.Unlock()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		h(w, r)
	}
}

func (b *Backend) listItems(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	items := append([]model.Item(nil), b.Items...)
	b.Unlock()
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) findItem(id model.ID) (int, bool) {
	for i, it := range b.Items {
		if it.ID == id || it.EventID == id {
			return i, true
		}
	}
	return -1, false
}

func (b *Backend) getEvent(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	i, ok := b.findItem(model.ID(r.PathValue("id")))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "event not found"})
		return
	}
	writeJSON(w, http.StatusOK, b.Items[i])
}

func (b *Backend) listMedia(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	media := append([]model.Media(nil), b.Media[model.ID(r.PathValue("id"))]...)
	b.Unlock()
	if media == nil {
		media = []model.Media{}
	}
	writeJSON(w, http.StatusOK, media)
}

func (b *Backend) updateEvent(w http.ResponseWriter, r *http.Request) {
	var fields model.EventFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	id := model.ID(r.PathValue("id"))

	b.Lock()
	defer b.Unlock()
	i, ok := b.findItem(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "event not found"})
		return
	}
	b.Items[i].Title = fields.Title
	b.Items[i].Description = fields.Description
	b.Items[i].Date = fields.Date
	b.Updates[id] = fields
	writeJSON(w, http.StatusOK, b.Items[i])
}

func (b *Backend) deleteItem(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	i, ok := b.findItem(model.ID(r.PathValue("id")))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	b.Items = append(b.Items[:i], b.Items[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	out := []model.Item{}
	for _, it := range b.Items {
		if it.Type == model.TypeAnnouncement {
			out = append(out, it)
		}
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) deleteMedia(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	b.Lock()
	defer b.Unlock()
	for eventID, list := range b.Media {
		for i, m := range list {
			if m.MediaID == id {
				b.Media[eventID] = append(list[:i:i], list[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "media not found"})
}

func (b *Backend) addMedia(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []model.FileUpload `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	id := model.ID(r.PathValue("id"))
	b.Lock()
	defer b.Unlock()
	for _, f := range req.Files {
		b.Media[id] = append(b.Media[id], model.Media{
			MediaID:  b.newID(),
			URL:      "https://cdn.example.com/" + f.Filename,
			Filename: f.Filename,
		})
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(req.Files)})
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	b.Lock()
	defer b.Unlock()
	b.Uploads = append(b.Uploads, raw)
	it := model.Item{ID: b.newID(), Type: model.ItemType(str(raw["type"])), Title: str(raw["title"]), Description: str(raw["description"])}
	it.Date, _ = model.ParseDate(str(raw["date"]))
	it.RequiresRSVP, _ = raw["requiresRsvp"].(bool)
	b.Items = append(b.Items, it)
	writeJSON(w, http.StatusCreated, it)
}

func (b *Backend) uploadPoster(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	b.Lock()
	defer b.Unlock()
	b.Uploads = append(b.Uploads, raw)
	if str(raw["type"]) == string(model.TypeMotivation) {
		b.Motivations = append(b.Motivations, model.Motivation{ID: model.ID(str(raw["id"])), Text: str(raw["motivation"])})
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (b *Backend) listMotivations(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	ms := append([]model.Motivation(nil), b.Motivations...)
	b.Unlock()
	if ms == nil {
		ms = []model.Motivation{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (b *Backend) createMotivation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Motivation string `json:"motivation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	b.Lock()
	defer b.Unlock()
	m := model.Motivation{ID: b.newID(), Text: body.Motivation}
	b.Motivations = append(b.Motivations, m)
	writeJSON(w, http.StatusCreated, m)
}

func (b *Backend) updateMotivation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Motivation string `json:"motivation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	id := model.ID(r.PathValue("id"))
	b.Lock()
	defer b.Unlock()
	for i := range b.Motivations {
		if b.Motivations[i].ID == id {
			b.Motivations[i].Text = body.Motivation
			writeJSON(w, http.StatusOK, b.Motivations[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "motivation not found"})
}

func (b *Backend) deleteMotivation(w http.ResponseWriter, r *http.Request) {
	id := model.ID(r.PathValue("id"))
	b.Lock()
	defer b.Unlock()
	for i := range b.Motivations {
		if b.Motivations[i].ID == id {
			b.Motivations = append(b.Motivations[:i], b.Motivations[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "motivation not found"})
}

func (b *Backend) rsvpCounts(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	counts := model.Counts{}
	for k, v := range b.RSVPCounts {
		counts[k] = v
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, counts)
}

func (b *Backend) submitRSVP(w http.ResponseWriter, r *http.Request) {
	var rsvp model.RSVP
	if err := json.NewDecoder(r.Body).Decode(&rsvp); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON"})
		return
	}
	b.Lock()
	defer b.Unlock()
	b.RSVPs = append(b.RSVPs, rsvp)
	b.RSVPCounts[rsvp.EventID.String()]++
	writeJSON(w, http.StatusOK, map[string]string{"message": "RSVP recorded"})
}

func (b *Backend) toggleLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID     model.ID `json:"eventId"`
		Fingerprint string   `json:"fingerprint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Fingerprint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "eventId and fingerprint are required"})
		return
	}
	b.Lock()
	defer b.Unlock()
	key := fmt.Sprintf("%s|%s", req.EventID, req.Fingerprint)
	action := "like"
	if b.likes[key] {
		action = "unlike"
		b.likeCounts[req.EventID]--
	} else {
		b.likeCounts[req.EventID]++
	}
	b.likes[key] = !b.likes[key]
	writeJSON(w, http.StatusOK, map[string]any{"action": action, "likeCount": b.likeCounts[req.EventID]})
}

func (b *Backend) newID() model.ID {
	b.nextID++
	return model.ID(strconv.Itoa(b.nextID))
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// MediaOf returns a copy of an event's media list.
func (b *Backend) MediaOf(eventID model.ID) []model.Media {
	b.Lock()
	defer b.Unlock()
	return append([]model.Media(nil), b.Media[eventID]...)
}

// Update returns the last fields PUT for an event.
func (b *Backend) Update(eventID model.ID) (model.EventFields, bool) {
	b.Lock()
	defer b.Unlock()
	f, ok := b.Updates[eventID]
	return f, ok
}

// Snapshot copies the seeded collections for inspection.
func (b *Backend) Snapshot() (items []model.Item, motivations []model.Motivation, rsvps []model.RSVP) {
	b.Lock()
	defer b.Unlock()
	return append([]model.Item(nil), b.Items...),
		append([]model.Motivation(nil), b.Motivations...),
		append([]model.RSVP(nil), b.RSVPs...)
}

// LastUpload returns the most recent body sent to an upload endpoint.
func (b *Backend) LastUpload() map[string]any {
	b.Lock()
	defer b.Unlock()
	if len(b.Uploads) == 0 {
		return nil
	}
	return b.Uploads[len(b.Uploads)-1]
}
