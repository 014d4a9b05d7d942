package listing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/citievents/internal/model"
)

// Fetcher is the part of the API client the syncer reads from.
type Fetcher interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	RSVPCounts(ctx context.Context) (model.Counts, error)
}

// Snapshot is one consistent result of fetching the collection and the RSVP
// counts together.
type Snapshot struct {
	Partitioned
	Items      []model.Item `json:"items"`
	RSVPCounts model.Counts `json:"rsvpCounts"`
	Generation uint64       `json:"generation"`
	FetchedAt  time.Time    `json:"fetchedAt"`
}

// Syncer keeps the latest snapshot. Every Refresh is stamped with a
// generation when it starts; a fetch that completes after a newer one has
// been applied is discarded.
type Syncer struct {
	fetcher Fetcher
	logger  *slog.Logger
	clock   func() time.Time

	issued atomic.Uint64

	mu      sync.RWMutex
	current Snapshot

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

func NewSyncer(fetcher Fetcher, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		fetcher: fetcher,
		logger:  logger,
		clock:   time.Now,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Refresh re-fetches everything. It returns the snapshot that is current
// afterwards, which is a newer one than this call fetched if that call's
// response was stale.
func (s *Syncer) Refresh(ctx context.Context) (Snapshot, error) {
	gen := s.issued.Add(1)

	var (
		items  []model.Item
		counts model.Counts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.fetcher.ListItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.fetcher.RSVPCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.Snapshot(), fmt.Errorf("refresh listing: %w", err)
	}

	p := Partition(items)
	SortEvents(p.Events)
	SortAnnouncements(p.Announcements)
	if counts == nil {
		counts = model.Counts{}
	}
	snap := Snapshot{
		Items:       items,
		Partitioned: p,
		RSVPCounts:  counts,
		Generation:  gen,
		FetchedAt:   s.clock(),
	}

	s.mu.Lock()
	if gen <= s.current.Generation {
		cur := s.current
		s.mu.Unlock()
		s.logger.Debug("discarding stale fetch", "generation", gen, "current", cur.Generation)
		return cur, nil
	}
	s.current = snap
	s.mu.Unlock()

	if p.Dropped > 0 {
		s.logger.Warn("dropped items with unknown type", "count", p.Dropped)
	}
	s.logger.Debug("listing refreshed",
		"generation", gen,
		"events", len(p.Events),
		"announcements", len(p.Announcements),
	)
	s.notify(snap)
	return snap, nil
}

// Snapshot returns the last applied snapshot. Generation 0 means nothing
// has been fetched yet.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Loaded returns the current snapshot, fetching first if there is none.
func (s *Syncer) Loaded(ctx context.Context) (Snapshot, error) {
	if snap := s.Snapshot(); snap.Generation > 0 {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Subscribe registers fn to run after each applied snapshot. The returned
// func unregisters it.
func (s *Syncer) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Syncer) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
