// Package admin implements the dashboard's mutating operations. Every
// mutation is followed by a full re-fetch rather than patching local state.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/validate"
)

type Backend interface {
	ListMotivations(ctx context.Context) ([]model.Motivation, error)
	CreateMotivation(ctx context.Context, text string) error
	CreateMotivationLegacy(ctx context.Context, text string, now time.Time) error
	UpdateMotivation(ctx context.Context, id model.ID, text string) error
	DeleteMotivation(ctx context.Context, id model.ID) error

	UpdateEvent(ctx context.Context, id model.ID, fields model.EventFields) error
	DeleteEvent(ctx context.Context, id model.ID) error
	DeleteAnnouncement(ctx context.Context, id model.ID) error
	UploadEvent(ctx context.Context, req model.UploadRequest) error
	UploadPoster(ctx context.Context, req model.PosterUpload) error
	AddMedia(ctx context.Context, eventID model.ID, files []model.FileUpload) error
}

// Syncer re-fetches the listing after event mutations.
type Syncer interface {
	Refresh(ctx context.Context) (listing.Snapshot, error)
}

type Service struct {
	backend Backend
	syncer  Syncer
	logger  *slog.Logger
	clock   func() time.Time
	legacy  bool
	posters bool

	mu          sync.RWMutex
	motivations []model.Motivation
}

type Option func(*Service)

// WithLegacyMotivations creates motivations through /upload-poster with a
// client-chosen ID, for backends without POST /motivation.
func WithLegacyMotivations() Option {
	return func(s *Service) { s.legacy = true }
}

// WithLegacyUploads creates events and announcements through /upload-poster,
// which takes at most one file.
func WithLegacyUploads() Option {
	return func(s *Service) { s.posters = true }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(backend Backend, syncer Syncer, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		syncer:  syncer,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Motivations returns the list from the last fetch.
func (s *Service) Motivations() []model.Motivation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.motivations)
}

func (s *Service) ListMotivations(ctx context.Context) ([]model.Motivation, error) {
	ms, err := s.backend.ListMotivations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list motivations: %w", err)
	}
	s.mu.Lock()
	s.motivations = ms
	s.mu.Unlock()
	return slices.Clone(ms), nil
}

func (s *Service) CreateMotivation(ctx context.Context, text string) ([]model.Motivation, error) {
	text = strings.TrimSpace(text)
	if err := validate.Required("motivation", text); err != nil {
		return nil, err
	}
	var err error
	if s.legacy {
		err = s.backend.CreateMotivationLegacy(ctx, text, s.clock())
	} else {
		err = s.backend.CreateMotivation(ctx, text)
	}
	if err != nil {
		return nil, fmt.Errorf("create motivation: %w", err)
	}
	return s.ListMotivations(ctx)
}

func (s *Service) UpdateMotivation(ctx context.Context, id model.ID, text string) ([]model.Motivation, error) {
	text = strings.TrimSpace(text)
	if err := validate.First(
		validate.Required("id", id.String()),
		validate.Required("motivation", text),
	); err != nil {
		return nil, err
	}
	if err := s.backend.UpdateMotivation(ctx, id, text); err != nil {
		return nil, fmt.Errorf("update motivation: %w", err)
	}
	return s.ListMotivations(ctx)
}

func (s *Service) DeleteMotivation(ctx context.Context, id model.ID) ([]model.Motivation, error) {
	if err := validate.Required("id", id.String()); err != nil {
		return nil, err
	}
	if err := s.backend.DeleteMotivation(ctx, id); err != nil {
		return nil, fmt.Errorf("delete motivation: %w", err)
	}
	return s.ListMotivations(ctx)
}

// UpdateEvent saves the editable fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, id model.ID, fields model.EventFields) error {
	fields.Title = strings.TrimSpace(fields.Title)
	if err := validate.First(
		validate.Required("id", id.String()),
		validate.Required("title", fields.Title),
	); err != nil {
		return err
	}
	if err := s.backend.UpdateEvent(ctx, id, fields); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	s.refresh(ctx, "update event")
	return nil
}

// DeleteItem removes an event or an announcement.
func (s *Service) DeleteItem(ctx context.Context, typ model.ItemType, id model.ID) error {
	if err := validate.Required("id", id.String()); err != nil {
		return err
	}
	var err error
	switch typ {
	case model.TypeAnnouncement:
		err = s.backend.DeleteAnnouncement(ctx, id)
	case model.TypeEvent, "":
		err = s.backend.DeleteEvent(ctx, id)
	default:
		return &validate.Error{Field: "type", Message: fmt.Sprintf("cannot delete items of type %q", typ)}
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", typ, err)
	}
	s.refresh(ctx, "delete item")
	return nil
}

// UploadForm is the admin create form.
type UploadForm struct {
	Type         model.ItemType     `json:"type"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Date         string             `json:"date"`
	RequiresRSVP bool               `json:"requiresRsvp"`
	Files        []model.FileUpload `json:"files"`
}

// Validate applies the create-form rules: title and description always;
// events also need a date and a poster file.
func (f UploadForm) Validate() error {
	if err := validate.First(
		validate.Required("title", f.Title),
		validate.Required("description", f.Description),
	); err != nil {
		return err
	}
	switch f.Type {
	case model.TypeEvent:
		if err := validate.Required("date", f.Date); err != nil {
			return err
		}
		if _, err := model.ParseDate(f.Date); err != nil {
			return &validate.Error{Field: "date", Message: "date must be YYYY-MM-DD"}
		}
		if len(f.Files) == 0 {
			return &validate.Error{Field: "file", Message: "file is required"}
		}
	case model.TypeAnnouncement:
	default:
		return &validate.Error{Field: "type", Message: "type must be event or announcement"}
	}
	return nil
}

// CreateItem uploads a new event or announcement.
func (s *Service) CreateItem(ctx context.Context, form UploadForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	if s.posters {
		return s.createPoster(ctx, form)
	}
	req := model.UploadRequest{
		Type:        form.Type,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		Files:       form.Files,
	}
	if form.Type == model.TypeEvent {
		req.Date = form.Date
		req.RequiresRSVP = form.RequiresRSVP
	}
	if err := s.backend.UploadEvent(ctx, req); err != nil {
		return fmt.Errorf("create %s: %w", form.Type, err)
	}
	s.refresh(ctx, "create item")
	return nil
}

func (s *Service) createPoster(ctx context.Context, form UploadForm) error {
	if len(form.Files) > 1 {
		return &validate.Error{Field: "file", Message: "only one file can be uploaded"}
	}
	req := model.PosterUpload{
		Type:        form.Type,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
	}
	if len(form.Files) == 1 {
		req.File = &form.Files[0]
	}
	if form.Type == model.TypeEvent {
		req.Date = form.Date
		req.RequiresRSVP = form.RequiresRSVP
	}
	if err := s.backend.UploadPoster(ctx, req); err != nil {
		return fmt.Errorf("create %s: %w", form.Type, err)
	}
	s.refresh(ctx, "create item")
	return nil
}

// AddMedia attaches files to an existing event.
func (s *Service) AddMedia(ctx context.Context, eventID model.ID, files []model.FileUpload) error {
	if err := validate.Required("event", eventID.String()); err != nil {
		return err
	}
	if len(files) == 0 {
		return &validate.Error{Field: "files", Message: "at least one file is required"}
	}
	if err := s.backend.AddMedia(ctx, eventID, files); err != nil {
		return fmt.Errorf("add media: %w", err)
	}
	s.refresh(ctx, "add media")
	return nil
}

// refresh re-syncs after a successful mutation. A failed re-fetch does not
// undo the mutation; the next scheduled or manual refresh catches up.
func (s *Service) refresh(ctx context.Context, op string) {
	if s.syncer == nil {
		return
	}
	if _, err := s.syncer.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after mutation failed", "op", op, "error", err)
	}
}
