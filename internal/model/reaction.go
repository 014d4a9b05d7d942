package model

// Counts maps an event key to a server-side count (RSVPs or likes).
type Counts map[string]int

// Of returns the count for it, trying the legacy eventId key first.
func (c Counts) Of(it Item) int {
	if n, ok := c[it.Key().String()]; ok {
		return n
	}
	return c[it.ID.String()]
}

// ReactionState is the last server-confirmed like state for one visitor
// identity on one event.
type ReactionState struct {
	EventID     ID     `json:"eventId"`
	Fingerprint string `json:"fingerprint"`
	Liked       bool   `json:"liked"`
	Count       int    `json:"count"`
}

type RSVP struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	EventID ID     `json:"eventId"`
}
