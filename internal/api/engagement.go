package api

import (
	"context"
	"net/http"

	"github.com/dukerupert/citievents/internal/model"
)

// RSVPCounts returns the event key to attendee count mapping.
func (c *Client) RSVPCounts(ctx context.Context) (model.Counts, error) {
	counts := model.Counts{}
	if err := c.do(ctx, "rsvp counts", http.MethodGet, "/rsvp-counts", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) SubmitRSVP(ctx context.Context, r model.RSVP) error {
	return c.do(ctx, "submit rsvp", http.MethodPost, "/submit-rsvp", r, nil)
}

type toggleLikeRequest struct {
	EventID     model.ID `json:"eventId"`
	Fingerprint string   `json:"fingerprint"`
}

// LikeResult is the server's verdict on a toggle. Action is "like" or
// "unlike".
type LikeResult struct {
	Action    string `json:"action"`
	LikeCount int    `json:"likeCount"`
}

func (r LikeResult) Liked() bool {
	return r.Action == "like"
}

// ToggleLike flips the like state of (eventID, fingerprint) on the server.
// Each call flips; callers must not send duplicates.
func (c *Client) ToggleLike(ctx context.Context, eventID model.ID, fingerprint string) (LikeResult, error) {
	var res LikeResult
	body := toggleLikeRequest{EventID: eventID, Fingerprint: fingerprint}
	if err := c.do(ctx, "toggle like", http.MethodPost, "/event-likes/toggle", body, &res); err != nil {
		return LikeResult{}, err
	}
	return res, nil
}
