// Package reaction toggles likes on behalf of anonymous visitors. Counts are
// always the server's; nothing is incremented locally.
package reaction

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/identity"
	"github.com/dukerupert/citievents/internal/model"
)

// Liker is the part of the API client the toggler needs.
type Liker interface {
	ToggleLike(ctx context.Context, eventID model.ID, fingerprint string) (api.LikeResult, error)
}

// Recorder persists confirmed states. store.ReactionStore implements it.
type Recorder interface {
	Record(ctx context.Context, state model.ReactionState) error
	Get(ctx context.Context, eventID model.ID, fingerprint string) (*model.ReactionState, error)
}

type Toggler struct {
	liker    Liker
	ids      identity.Provider
	recorder Recorder
	logger   *slog.Logger

	// Concurrent toggles of one (event, identity) share a single request;
	// each request flips server state, so a double-click must not send two.
	group singleflight.Group

	mu     sync.RWMutex
	states map[string]model.ReactionState
	counts model.Counts
}

type Option func(*Toggler)

func WithRecorder(r Recorder) Option {
	return func(t *Toggler) { t.recorder = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Toggler) { t.logger = logger }
}

func New(liker Liker, ids identity.Provider, opts ...Option) *Toggler {
	t := &Toggler{
		liker:  liker,
		ids:    ids,
		logger: slog.Default(),
		states: make(map[string]model.ReactionState),
		counts: model.Counts{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

const sharedToggleTimeout = 30 * time.Second

func stateKey(eventID model.ID, fingerprint string) string {
	return eventID.String() + "|" + fingerprint
}

// Toggle flips the visitor's like on eventID and returns the state the
// server reports.
func (t *Toggler) Toggle(ctx context.Context, eventID model.ID) (model.ReactionState, error) {
	fp, err := t.ids.Identity(ctx)
	if err != nil {
		return model.ReactionState{}, fmt.Errorf("resolve identity: %w", err)
	}

	v, err, shared := t.group.Do(stateKey(eventID, fp), func() (any, error) {
		// Collapsed callers share this request, so it must not end with
		// the first caller's context.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedToggleTimeout)
		defer cancel()
		res, err := t.liker.ToggleLike(ctx, eventID, fp)
		if err != nil {
			return nil, err
		}
		st := model.ReactionState{
			EventID:     eventID,
			Fingerprint: fp,
			Liked:       res.Liked(),
			Count:       res.LikeCount,
		}
		t.apply(st)
		if t.recorder != nil {
			if err := t.recorder.Record(ctx, st); err != nil {
				t.logger.Warn("failed to record reaction", "event_id", eventID, "error", err)
			}
		}
		return st, nil
	})
	if err != nil {
		return model.ReactionState{}, err
	}
	if shared {
		t.logger.Debug("collapsed duplicate like toggle", "event_id", eventID)
	}
	return v.(model.ReactionState), nil
}

func (t *Toggler) apply(st model.ReactionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[stateKey(st.EventID, st.Fingerprint)] = st
	t.counts[st.EventID.String()] = st.Count
}

// State returns the last server-confirmed state of the current visitor on
// eventID, falling back to the recorder when this process has not toggled
// it yet.
func (t *Toggler) State(ctx context.Context, eventID model.ID) (model.ReactionState, bool, error) {
	fp, err := t.ids.Identity(ctx)
	if err != nil {
		return model.ReactionState{}, false, fmt.Errorf("resolve identity: %w", err)
	}

	t.mu.RLock()
	st, ok := t.states[stateKey(eventID, fp)]
	t.mu.RUnlock()
	if ok || t.recorder == nil {
		return st, ok, nil
	}

	stored, err := t.recorder.Get(ctx, eventID, fp)
	if err != nil {
		return model.ReactionState{}, false, err
	}
	if stored == nil {
		return model.ReactionState{}, false, nil
	}
	return *stored, true, nil
}

// Counts returns the last server-reported like count per event.
func (t *Toggler) Counts() model.Counts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.counts)
}
