// Package media manages the ordered attachments of one event while an admin
// edits it. Reordering is local until the session is saved; deletion goes
// to the server immediately.
package media

import (
	"fmt"
	"slices"

	"github.com/dukerupert/citievents/internal/model"
)

// Reorder moves the item at src to dst and returns the new list. A nil dst
// is a drop outside any target and returns list unchanged. list itself is
// never modified.
func Reorder(list []model.Media, src int, dst *int) ([]model.Media, error) {
	if dst == nil {
		return list, nil
	}
	if src < 0 || src >= len(list) {
		return list, fmt.Errorf("source index %d out of range [0, %d)", src, len(list))
	}
	if *dst < 0 || *dst >= len(list) {
		return list, fmt.Errorf("destination index %d out of range [0, %d)", *dst, len(list))
	}

	out := make([]model.Media, 0, len(list))
	out = append(out, list[:src]...)
	out = append(out, list[src+1:]...)

	return slices.Insert(out, *dst, list[src]), nil
}

// IDs returns the media IDs in list order.
func IDs(list []model.Media) []model.ID {
	ids := make([]model.ID, len(list))
	for i, m := range list {
		ids[i] = m.MediaID
	}
	return ids
}

func sameOrder(a, b []model.Media) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].MediaID != b[i].MediaID {
			return false
		}
	}
	return true
}
