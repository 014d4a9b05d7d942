package api

import (
	"context"
	"net/http"

	"github.com/dukerupert/citievents/internal/model"
)

// ListItems returns the full type-tagged collection of events,
// announcements and legacy motivation records.
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, "list items", http.MethodGet, "/events", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetEvent(ctx context.Context, id model.ID) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, "get event", http.MethodGet, "/events/"+escape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListMedia(ctx context.Context, eventID model.ID) ([]model.Media, error) {
	var media []model.Media
	if err := c.do(ctx, "list media", http.MethodGet, "/events/"+escape(eventID)+"/media", nil, &media); err != nil {
		return nil, err
	}
	return media, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id model.ID, fields model.EventFields) error {
	return c.do(ctx, "update event", http.MethodPut, "/events/"+escape(id), fields, nil)
}

func (c *Client) DeleteEvent(ctx context.Context, id model.ID) error {
	return c.do(ctx, "delete event", http.MethodDelete, "/events/"+escape(id), nil, nil)
}

func (c *Client) DeleteMedia(ctx context.Context, mediaID model.ID) error {
	return c.do(ctx, "delete media", http.MethodDelete, "/media/"+escape(mediaID), nil, nil)
}

type addMediaRequest struct {
	Files []model.FileUpload `json:"files"`
}

// AddMedia attaches files to an existing event.
func (c *Client) AddMedia(ctx context.Context, eventID model.ID, files []model.FileUpload) error {
	return c.do(ctx, "add media", http.MethodPost, "/events/"+escape(eventID)+"/add-media", addMediaRequest{Files: files}, nil)
}

// UploadEvent creates an event or announcement with optional embedded files.
func (c *Client) UploadEvent(ctx context.Context, req model.UploadRequest) error {
	return c.do(ctx, "upload event", http.MethodPost, "/upload-events", req, nil)
}

// UploadPoster is the legacy create path with a single flattened file.
func (c *Client) UploadPoster(ctx context.Context, req model.PosterUpload) error {
	return c.do(ctx, "upload poster", http.MethodPost, "/upload-poster", req, nil)
}

func (c *Client) ListAnnouncements(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, "list announcements", http.MethodGet, "/announcements", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) DeleteAnnouncement(ctx context.Context, id model.ID) error {
	return c.do(ctx, "delete announcement", http.MethodDelete, "/announcements/"+escape(id), nil, nil)
}
