// Package dailypick chooses the motivation of the day and keeps the choice
// stable for the rest of that calendar date.
package dailypick

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dukerupert/citievents/internal/model"
	"github.com/dukerupert/citievents/internal/store"
)

// ErrNoMotivations is returned with an empty result when there is nothing
// to pick from and no pick stored for today.
var ErrNoMotivations = errors.New("dailypick: no motivations available")

// Storage holds the single persisted pick. Save must fail with
// store.ErrConflict when the stored value is no longer prev.
type Storage interface {
	Load(ctx context.Context) (model.DailyPick, bool, error)
	Save(ctx context.Context, prev, next model.DailyPick) error
}

type Picker struct {
	storage Storage
	clock   func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	display string
}

type Option func(*Picker)

// WithClock replaces time.Now. The calendar date is taken in the location of
// the returned time.
func WithClock(clock func() time.Time) Option {
	return func(p *Picker) { p.clock = clock }
}

func WithRand(rng *rand.Rand) Option {
	return func(p *Picker) { p.rng = rng }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Picker) { p.logger = logger }
}

func New(storage Storage, opts ...Option) *Picker {
	p := &Picker{
		storage: storage,
		clock:   time.Now,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today returns the device-local calendar date as YYYY-MM-DD.
func (p *Picker) Today() string {
	return model.DateOf(p.clock()).String()
}

// GetTodayPick returns today's motivation, drawing and persisting a new one
// on the first call of a date. Draws come from motivations not shown since
// the last cycle reset; once all have been shown the cycle restarts.
func (p *Picker) GetTodayPick(ctx context.Context, motivations []model.Motivation) (string, error) {
	today := p.Today()

	for attempt := 0; ; attempt++ {
		prev, found, err := p.storage.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("get today pick: %w", err)
		}
		if found && prev.Date == today && prev.Motivation != "" {
			p.setDisplay(prev.Motivation)
			return prev.Motivation, nil
		}
		if len(motivations) == 0 {
			return "", ErrNoMotivations
		}

		next := p.draw(today, prev.Shown, motivations)
		if !found {
			prev = model.DailyPick{}
		}
		err = p.storage.Save(ctx, prev, next)
		if err == nil {
			p.setDisplay(next.Motivation)
			return next.Motivation, nil
		}
		if !errors.Is(err, store.ErrConflict) || attempt > 0 {
			return "", fmt.Errorf("get today pick: %w", err)
		}
		p.logger.Debug("daily pick written concurrently, reloading", "date", today)
	}
}

// Refresh shows a random motivation from the full set without persisting it
// or counting it as shown.
func (p *Picker) Refresh(motivations []model.Motivation) (string, error) {
	if len(motivations) == 0 {
		return "", ErrNoMotivations
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.display = motivations[p.rng.IntN(len(motivations))].Text
	return p.display, nil
}

// Current returns the motivation last returned by GetTodayPick or Refresh.
func (p *Picker) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.display
}

func (p *Picker) setDisplay(text string) {
	p.mu.Lock()
	p.display = text
	p.mu.Unlock()
}

func (p *Picker) draw(today string, shown []string, motivations []model.Motivation) model.DailyPick {
	present := make(map[string]bool, len(motivations))
	for _, m := range motivations {
		present[m.ID.String()] = true
	}

	// IDs of deleted motivations are dropped so the set never outgrows M.
	seen := make(map[string]bool, len(shown))
	kept := make([]string, 0, len(shown)+1)
	for _, id := range shown {
		if present[id] && !seen[id] {
			seen[id] = true
			kept = append(kept, id)
		}
	}

	var unseen []model.Motivation
	for _, m := range motivations {
		if !seen[m.ID.String()] {
			unseen = append(unseen, m)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var chosen model.Motivation
	if len(unseen) == 0 {
		chosen = motivations[p.rng.IntN(len(motivations))]
		kept = []string{chosen.ID.String()}
	} else {
		chosen = unseen[p.rng.IntN(len(unseen))]
		kept = append(kept, chosen.ID.String())
	}

	return model.DailyPick{Date: today, Motivation: chosen.Text, Shown: kept}
}
