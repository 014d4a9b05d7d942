// Package listing turns the heterogeneous item collection into the sorted,
// filtered and paginated lists the console shows, and keeps it in sync with
// the backend.
package listing

import (
	"slices"
	"strings"

	"github.com/dukerupert/citievents/internal/model"
)

// Partitioned is a collection split by type discriminator. Items whose type
// is not an exact match of a known value land in no list and are only
// counted in Dropped.
type Partitioned struct {
	Events        []model.Item `json:"events"`
	Announcements []model.Item `json:"announcements"`
	Motivations   []model.Item `json:"motivations"`
	Dropped       int          `json:"dropped"`
}

func Partition(items []model.Item) Partitioned {
	var p Partitioned
	for _, it := range items {
		switch it.Type {
		case model.TypeEvent:
			p.Events = append(p.Events, it)
		case model.TypeAnnouncement:
			p.Announcements = append(p.Announcements, it)
		case model.TypeMotivation:
			p.Motivations = append(p.Motivations, it)
		default:
			p.Dropped++
		}
	}
	return p
}

// SortEvents orders events by ascending date. Undated events go last.
func SortEvents(events []model.Item) {
	slices.SortStableFunc(events, func(a, b model.Item) int {
		return compareDates(a.Date, b.Date)
	})
}

// SortAnnouncements orders announcements by ascending posted date.
func SortAnnouncements(announcements []model.Item) {
	slices.SortStableFunc(announcements, func(a, b model.Item) int {
		return compareDates(a.Posted(), b.Posted())
	})
}

func compareDates(a, b model.Date) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b.Time)
}

// RSVPEvents returns the events that take RSVPs, in date order. These feed
// the notifications badge and the RSVP page.
func RSVPEvents(items []model.Item) []model.Item {
	var out []model.Item
	for _, it := range items {
		if it.Type == model.TypeEvent && it.RequiresRSVP {
			out = append(out, it)
		}
	}
	SortEvents(out)
	return out
}

// Find returns the item whose id or legacy eventId is id.
func Find(items []model.Item, id model.ID) (model.Item, bool) {
	for _, it := range items {
		if it.ID == id || (it.EventID != "" && it.EventID == id) {
			return it, true
		}
	}
	return model.Item{}, false
}

// Motivations converts legacy motivation records of the listing collection.
func Motivations(items []model.Item) []model.Motivation {
	var out []model.Motivation
	for _, it := range items {
		if it.Type != model.TypeMotivation {
			continue
		}
		text := it.Motivation
		if strings.TrimSpace(text) == "" {
			text = it.Description
		}
		out = append(out, model.Motivation{ID: it.ID, Text: text})
	}
	return out
}
