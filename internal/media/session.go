package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/citievents/internal/model"
)

var (
	ErrNoSession     = errors.New("media: no edit session open")
	ErrSessionClosed = errors.New("media: edit session already saved or cancelled")
	ErrUnknownMedia  = errors.New("media: item is not part of this event")
)

type State string

const (
	StateIdle      State = "idle"
	StateLoaded    State = "loaded"
	StateReordered State = "reordered"
	StateSaved     State = "saved"
	StateCancelled State = "cancelled"
)

// Backend is the part of the API client a session talks to.
type Backend interface {
	ListMedia(ctx context.Context, eventID model.ID) ([]model.Media, error)
	DeleteMedia(ctx context.Context, mediaID model.ID) error
	UpdateEvent(ctx context.Context, id model.ID, fields model.EventFields) error
}

// ReorderPersister stores a new media order. The backend has no such
// endpoint today, so sessions run without one unless configured.
type ReorderPersister interface {
	PersistOrder(ctx context.Context, eventID model.ID, mediaIDs []model.ID) error
}

// Session is one admin edit of an event's media:
// Idle -> Loaded -> Reordered -> Saved | Cancelled.
type Session struct {
	backend   Backend
	persister ReorderPersister
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	eventID model.ID
	loaded  []model.Media
	current []model.Media
}

type Option func(*Session)

func WithPersister(p ReorderPersister) Option {
	return func(s *Session) { s.persister = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		logger:  slog.Default(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open fetches the event's media. Opening again discards any unsaved order.
func (s *Session) Open(ctx context.Context, eventID model.ID) ([]model.Media, error) {
	list, err := s.backend.ListMedia(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("open media session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventID = eventID
	s.loaded = list
	s.current = slices.Clone(list)
	s.state = StateLoaded
	return slices.Clone(s.current), nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) EventID() model.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventID
}

// Media returns the current local order.
func (s *Session) Media() []model.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.current)
}

func (s *Session) checkOpen() error {
	switch s.state {
	case StateIdle:
		return ErrNoSession
	case StateSaved, StateCancelled:
		return ErrSessionClosed
	}
	return nil
}

// Move applies a drag from src to dst locally. A nil dst is a no-op.
func (s *Session) Move(src int, dst *int) ([]model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	next, err := Reorder(s.current, src, dst)
	if err != nil {
		return slices.Clone(s.current), err
	}
	s.current = next
	if sameOrder(s.current, s.loaded) {
		s.state = StateLoaded
	} else {
		s.state = StateReordered
	}
	return slices.Clone(s.current), nil
}

// Delete removes one media item of the open event on the server right away
// and then from the local list. It is not undone by Cancel.
func (s *Session) Delete(ctx context.Context, mediaID model.ID) ([]model.Media, error) {
	match := func(m model.Media) bool { return m.MediaID == mediaID }

	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !slices.ContainsFunc(s.current, match) {
		s.mu.Unlock()
		return nil, ErrUnknownMedia
	}
	s.mu.Unlock()

	if err := s.backend.DeleteMedia(ctx, mediaID); err != nil {
		return nil, fmt.Errorf("delete media: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = slices.DeleteFunc(slices.Clone(s.loaded), match)
	s.current = slices.DeleteFunc(s.current, match)
	return slices.Clone(s.current), nil
}

// Save persists the event fields and, when a persister is configured and
// the order changed, the new media order. The session is closed afterwards.
func (s *Session) Save(ctx context.Context, fields model.EventFields) error {
	s.mu.Lock()
	if err := s.checkOpen(); err != nil {
		s.mu.Unlock()
		return err
	}
	eventID := s.eventID
	reordered := !sameOrder(s.current, s.loaded)
	order := IDs(s.current)
	s.mu.Unlock()

	if err := s.backend.UpdateEvent(ctx, eventID, fields); err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	if reordered {
		if s.persister != nil {
			if err := s.persister.PersistOrder(ctx, eventID, order); err != nil {
				return fmt.Errorf("persist media order: %w", err)
			}
		} else {
			s.logger.Debug("media order not persisted, no persister configured", "event_id", eventID)
		}
	}

	s.mu.Lock()
	s.state = StateSaved
	s.mu.Unlock()
	return nil
}

// Cancel discards the local order. Deletions already sent stay deleted.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.current = slices.Clone(s.loaded)
	s.state = StateCancelled
	return nil
}
