package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/citievents/internal/model"
)

func (c *Client) ListMotivations(ctx context.Context) ([]model.Motivation, error) {
	var ms []model.Motivation
	if err := c.do(ctx, "list motivations", http.MethodGet, "/motivation", nil, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

type motivationBody struct {
	Motivation string `json:"motivation"`
}

func (c *Client) CreateMotivation(ctx context.Context, text string) error {
	return c.do(ctx, "create motivation", http.MethodPost, "/motivation", motivationBody{Motivation: text}, nil)
}

type legacyMotivationBody struct {
	ID         string         `json:"id"`
	Motivation string         `json:"motivation"`
	Type       model.ItemType `json:"type"`
}

// CreateMotivationLegacy posts through /upload-poster with a client-chosen
// millisecond timestamp ID, as older backends require.
func (c *Client) CreateMotivationLegacy(ctx context.Context, text string, now time.Time) error {
	body := legacyMotivationBody{
		ID:         strconv.FormatInt(now.UnixMilli(), 10),
		Motivation: text,
		Type:       model.TypeMotivation,
	}
	return c.do(ctx, "create motivation", http.MethodPost, "/upload-poster", body, nil)
}

func (c *Client) UpdateMotivation(ctx context.Context, id model.ID, text string) error {
	return c.do(ctx, "update motivation", http.MethodPut, "/motivation/"+escape(id), motivationBody{Motivation: text}, nil)
}

func (c *Client) DeleteMotivation(ctx context.Context, id model.ID) error {
	return c.do(ctx, "delete motivation", http.MethodDelete, "/motivation/"+escape(id), nil, nil)
}
