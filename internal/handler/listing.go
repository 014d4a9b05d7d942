package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/model"
)

type ListingHandler struct {
	syncer    *listing.Syncer
	pageSize  int
	threshold float64
	logger    *slog.Logger
}

func NewListingHandler(syncer *listing.Syncer, pageSize int, threshold float64, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{syncer: syncer, pageSize: pageSize, threshold: threshold, logger: logger}
}

type eventPage struct {
	Items      []model.Item `json:"items"`
	Page       int          `json:"page"`
	PageCount  int          `json:"pageCount"`
	Total      int          `json:"total"`
	RSVPCounts model.Counts `json:"rsvpCounts"`
	Generation uint64       `json:"generation"`
}

// Events returns one page of events, narrowed by the optional date and
// title filters.
func (h *ListingHandler) Events(w http.ResponseWriter, r *http.Request) {
	snap, err := h.syncer.Loaded(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "list events", err)
		return
	}

	q := r.URL.Query()
	view := listing.NewView(h.pageSize)
	view.SetItems(snap.Events)
	view.SetFilter(listing.Filter{
		Date:  strings.TrimSpace(q.Get("date")),
		Title: strings.TrimSpace(q.Get("q")),
	})
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorJSON("page must be a number"))
			return
		}
		view.SetPage(n)
	}

	page := view.Page()
	if page == nil {
		page = []model.Item{}
	}
	writeJSON(w, http.StatusOK, eventPage{
		Items:      page,
		Page:       view.CurrentPage(),
		PageCount:  view.PageCount(),
		Total:      view.Total(),
		RSVPCounts: snap.RSVPCounts,
		Generation: snap.Generation,
	})
}

type eventDetail struct {
	model.Item
	RSVPCount int `json:"rsvpCount"`
}

func (h *ListingHandler) Event(w http.ResponseWriter, r *http.Request) {
	snap, err := h.syncer.Loaded(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "get event", err)
		return
	}
	item, ok := listing.Find(snap.Events, model.ID(r.PathValue("id")))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorJSON("event not found"))
		return
	}
	writeJSON(w, http.StatusOK, eventDetail{Item: item, RSVPCount: snap.RSVPCounts.Of(item)})
}

func (h *ListingHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	snap, err := h.syncer.Loaded(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "list announcements", err)
		return
	}
	items := snap.Announcements
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

type searchResult struct {
	model.Item
	Score float64 `json:"score"`
}

// Search fuzzy-matches events and announcements by title and description.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON("q is required"))
		return
	}
	snap, err := h.syncer.Loaded(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "search", err)
		return
	}

	pool := make([]model.Item, 0, len(snap.Events)+len(snap.Announcements))
	pool = append(pool, snap.Events...)
	pool = append(pool, snap.Announcements...)

	results := listing.Search(pool, query, h.threshold)
	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		out = append(out, searchResult{Item: res.Item, Score: res.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

// Notifications lists the events that take RSVPs, which is what the
// console's badge counts.
func (h *ListingHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	snap, err := h.syncer.Loaded(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "list notifications", err)
		return
	}
	events := listing.RSVPEvents(snap.Events)
	if events == nil {
		events = []model.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// Refresh forces a re-sync with the backend.
func (h *ListingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.syncer.Refresh(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": snap.Generation,
		"fetchedAt":  snap.FetchedAt,
	})
}
