// Package rsvp submits event RSVPs and keeps the attendee counts current.
package rsvp

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/validate"
)

type Backend interface {
	SubmitRSVP(ctx context.Context, r model.RSVP) error
	RSVPCounts(ctx context.Context) (model.Counts, error)
}

type Request struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	EventID model.ID `json:"eventId"`
}

func (r Request) Validate() error {
	return validate.First(
		validate.Required("name", r.Name),
		validate.Email("email", r.Email),
		validate.Required("event", r.EventID.String()),
	)
}

// Service submits RSVPs. Counts are replaced wholesale from the server after
// each submission and never incremented locally.
type Service struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	counts model.Counts
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend, logger: slog.Default(), counts: model.Counts{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req, sends it and returns the re-fetched counts. Once the
// submission is accepted a failed re-fetch is only logged and the previous
// counts are returned.
func (s *Service) Submit(ctx context.Context, req Request) (model.Counts, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := model.RSVP{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		EventID: req.EventID,
	}
	if err := s.backend.SubmitRSVP(ctx, r); err != nil {
		return nil, fmt.Errorf("submit rsvp: %w", err)
	}
	counts, err := s.Reload(ctx)
	if err != nil {
		s.logger.Warn("refresh rsvp counts after submit failed", "event_id", r.EventID, "error", err)
	}
	return counts, nil
}

// Reload replaces the cached counts with the server's.
func (s *Service) Reload(ctx context.Context) (model.Counts, error) {
	counts, err := s.backend.RSVPCounts(ctx)
	if err != nil {
		return s.Counts(), fmt.Errorf("reload rsvp counts: %w", err)
	}
	s.Set(counts)
	return maps.Clone(counts), nil
}

// Set installs counts fetched elsewhere, e.g. by a listing sync.
func (s *Service) Set(counts model.Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = maps.Clone(counts)
	if s.counts == nil {
		s.counts = model.Counts{}
	}
}

func (s *Service) Counts() model.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.counts)
}
